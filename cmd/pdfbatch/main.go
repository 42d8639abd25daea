package main

// main is the entry point for the pdfbatch application. Execute (defined in
// root.go) builds the root Cobra command and runs it; error printing and the
// exit code follow Cobra's RunE convention.
func main() {
	Execute()
}
