package domain

// EncodedSticker is a size-bounded sticker image ready for upload.
type EncodedSticker struct {
	Data    []byte
	Format  string
	Width   int
	Height  int
	Quality int
}

// Size returns the encoded byte length.
func (s EncodedSticker) Size() int {
	return len(s.Data)
}
