package main

import "github.com/Phil-Jim/strava-analytics/cmd"

func main() {
	cmd.Execute()
}
