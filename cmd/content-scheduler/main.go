package main

import "github.com/MFaiqKhan/SocialSpark/services/contentscheduler/cli"

func main() {
	cli.Execute()
}
