package main

import "encoding/base64"

// placeholderPNG is a 1x1 transparent PNG served as the snapshot in
// memory-backend mode, where there is no real screen to capture.
var placeholderPNG, _ = base64.StdEncoding.DecodeString(
	"iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNkYPhfDwAChwGA60e6kgAAAABJRU5ErkJggg==",
)
