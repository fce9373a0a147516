// Package qrcode renders 2FA provisioning URIs as PNG images.
package qrcode

import (
	"encoding/base64"

	"arena/config"
	"arena/internal/domain/service"
	"arena/internal/errors"

	"github.com/skip2/go-qrcode"
)

const pngDataURLPrefix = "data:image/png;base64,"

type qrcodeService struct {
	size                 int
	errorCorrectionLevel qrcode.RecoveryLevel
}

// NewQRCodeServiceFromConfig reads the qrcode config section.
func NewQRCodeServiceFromConfig(cfg *config.Config) service.QRCodeService {
	if cfg.QRCode == nil {
		return NewQRCodeService(256, "M")
	}

	return NewQRCodeService(cfg.QRCode.Size, cfg.QRCode.ErrorCorrectionLevel)
}

// NewQRCodeService creates a new QR code service instance
func NewQRCodeService(size int, errorCorrectionLevel string) service.QRCodeService {
	// Set error correction level
	var level qrcode.RecoveryLevel
	switch errorCorrectionLevel {
	case "L":
		level = qrcode.Low
	case "M":
		level = qrcode.Medium
	case "Q":
		level = qrcode.High
	case "H":
		level = qrcode.Highest
	default:
		level = qrcode.Medium
	}

	if size <= 0 {
		size = 256
	}

	return &qrcodeService{
		size:                 size,
		errorCorrectionLevel: level,
	}
}

// GeneratePNG encodes content, typically an otpauth:// URI, as a PNG.
func (s *qrcodeService) GeneratePNG(content string) ([]byte, error) {
	if content == "" {
		return nil, errors.New("qr code content is empty")
	}

	qrCode, err := qrcode.New(content, s.errorCorrectionLevel)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create QR code")
	}

	pngBytes, err := qrCode.PNG(s.size)
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate PNG")
	}

	return pngBytes, nil
}

// GenerateDataURL returns the PNG as a data URL ready for an <img> tag.
func (s *qrcodeService) GenerateDataURL(content string) (string, error) {
	pngBytes, err := s.GeneratePNG(content)
	if err != nil {
		return "", err
	}

	return pngDataURLPrefix + base64.StdEncoding.EncodeToString(pngBytes), nil
}
