/*
Package retouch is a headless raster image editing engine. It composes a raster layer,
holding the image at its native resolution, with container layers holding freeform boxes
such as text, stickers and a crop frame. Every edit goes through an undo/redo history.

The package provides a command line interface which replays a list of edits over an image.
To check the supported commands type:

	$ retouch --help

In case you wish to integrate the API in a self constructed environment here is a simple example:

	package main

	import (
		"context"
		"fmt"
		"image"

		"github.com/esimov/retouch"
		"github.com/esimov/retouch/filter"
	)

	func main() {
		ed, err := retouch.New(image.Pt(800, 600))
		if err != nil {
			fmt.Printf("Error creating the editor: %s", err.Error())
		}
		defer ed.Close()

		if _, err := ed.CreateCanvasLayer(src); err != nil {
			fmt.Printf("Error loading the image: %s", err.Error())
		}
		ed.ApplyFilter(filter.Brightness, 20, nil)
		ed.Rotate(15, nil)
		ed.Undo()

		out, err := ed.Export(context.Background())
		if err != nil {
			fmt.Printf("Error exporting the image: %s", err.Error())
		}
		retouch.EncodeFile("output.png", out)
	}
*/
package retouch
