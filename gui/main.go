package main

import (
	"flag"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"

	"heartlink/gui/ui"
)

func main() {
	apiURL := flag.String("api", "http://localhost:5000", "HeartLink API base URL")
	configPath := flag.String("config", "config.json", "Configuration file to edit")
	flag.Parse()

	// Create the app
	myApp := app.New()
	myWindow := myApp.NewWindow("HeartLink Control Panel")
	myWindow.Resize(fyne.NewSize(900, 640))

	// Create the main UI
	mainUI := ui.NewMainUI(myWindow, ui.NewClient(*apiURL), *configPath)

	// Set up the window content
	myWindow.SetContent(mainUI.Build())
	myWindow.ShowAndRun()
}
