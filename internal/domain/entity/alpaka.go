package entity

import "time"

// Alpaka is an animal of the herd. BirthDate is kept exactly as entered.
// Image is the file name in the image store, empty when no picture exists.
type Alpaka struct {
	ID        string
	Name      string
	BirthDate string
	Image     string
	ETag      string
	Timestamp time.Time
}

// HasImage reports whether a picture was uploaded
func (a *Alpaka) HasImage() bool {
	return a.Image != ""
}
