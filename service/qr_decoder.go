package service

import (
	"fmt"
	"image"
	"log"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"
)

// QRDecoder reads the QR code printed on digital registrations.
type QRDecoder interface {
	Decode(img image.Image) (string, error)
}

type qrDecoder struct{}

func NewQRDecoder() QRDecoder {
	return &qrDecoder{}
}

func (d *qrDecoder) Decode(img image.Image) (string, error) {
	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return "", fmt.Errorf("failed to create binary bitmap: %w", err)
	}

	hints := map[gozxing.DecodeHintType]interface{}{
		gozxing.DecodeHintType_TRY_HARDER: true,
	}
	result, err := qrcode.NewQRCodeReader().Decode(bmp, hints)
	if err != nil {
		return "", fmt.Errorf("failed to decode QR code: %w", err)
	}

	log.Printf("QR code decoded, length: %d bytes", len(result.GetText()))
	return result.GetText(), nil
}

// firstQRPayload returns the first QR code found across images, or "".
func firstQRPayload(d QRDecoder, images []image.Image) string {
	if d == nil {
		return ""
	}
	for _, img := range images {
		if payload, err := d.Decode(img); err == nil && payload != "" {
			return payload
		}
	}
	return ""
}
