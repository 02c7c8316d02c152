package main

import "github.com/frahmantamala/employee-attendance/cmd"

func main() {
	cmd.Execute()
}
