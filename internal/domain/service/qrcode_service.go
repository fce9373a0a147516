package service

// QRCodeService renders text payloads as QR images.
type QRCodeService interface {
	// GeneratePNG encodes content as a PNG image.
	GeneratePNG(content string) ([]byte, error)

	// GenerateDataURL encodes content as a base64 PNG data URL.
	GenerateDataURL(content string) (string, error)
}
