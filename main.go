package main

import "github.com/lodgeworks/ms-go-booking-payments/cmd"

func main() {
	cmd.Execute()
}
