package pipeline

import (
	"testing"
)

func TestPigoLocatorRejectsTinyRaster(t *testing.T) {
	// Below the minimum detection window no cascade run is attempted, so an
	// unloaded classifier is fine here.
	locator := &PigoLocator{}
	if _, ok := locator.Locate(solidImage(10, 10, white)); ok {
		t.Fatal("expected no detection on a 10x10 raster")
	}
}
