package snippets

var fallbacks = map[string]string{
	"python": `def hello_world():
print("Hello, World!")
return True

def calculate_sum(a, b):
return a + b

def is_even(num):
return num % 2 == 0

def factorial(n):
if n == 0:
return 1
return n * factorial(n-1)`,
	"javascript": `function helloWorld() {
console.log("Hello, World!");
return true;
}

function calculateSum(a, b) {
return a + b;
}

function isEven(num) {
return num % 2 === 0;
}

function factorial(n) {
if (n === 0) return 1;
return n * factorial(n - 1);
}`,
	"java": `public class HelloWorld {
public static void main(String[] args) {
System.out.println("Hello, World!");
}

public static int calculateSum(int a, int b) {
return a + b;
}

public static boolean isEven(int num) {
return num % 2 == 0;
}

public static int factorial(int n) {
if (n == 0) return 1;
return n * factorial(n - 1);
}
}`,
}

// Fallback returns the built-in snippet for language, or the python one for
// languages without a snippet of their own.
func Fallback(language string) string {
	if s, ok := fallbacks[normalize(language)]; ok {
		return s
	}
	return fallbacks[DefaultLanguage]
}
