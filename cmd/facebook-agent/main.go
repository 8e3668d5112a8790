package main

import "github.com/MFaiqKhan/SocialSpark/services/facebook/cli"

func main() {
	cli.Execute()
}
