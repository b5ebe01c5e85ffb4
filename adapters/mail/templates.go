package mail

import "fmt"

const (
	welcomeSubject = "Thanks for joining in!"
	exitSubject    = "Sorry to see you go!"
)

func WelcomeEmail(name string) (subject, body string) {
	return welcomeSubject, fmt.Sprintf("Welcome to the app, %s. Let me know how you get along with the app.", name)
}

func ExitEmail(name string) (subject, body string) {
	return exitSubject, fmt.Sprintf("Goodbye, %s. I hope to see you back sometime soon.", name)
}
