package utils

import (
	"fmt"
	"log"
	"math"
	"os"
	"path"

	"ucc/src/config"

	"github.com/yeqown/go-qrcode"
)

// ComputeFees derives the platform and gateway fees from a snapshot total.
// Deterministic given the total: the same snapshot always prices the same.
func ComputeFees(total int64) (platformFee int64, gatewayFee int64) {
	platformFee = int64(math.Round(float64(total) * config.PlatformFeePercent() / 100))
	gatewayFee = int64(math.Round(float64(total) * config.GatewayFeePercent() / 100))
	return platformFee, gatewayFee
}

// GenerateAdmissionQR renders the admission code for a ticket purchase into
// a QR image under TEMP_DIR and returns the file path.
func GenerateAdmissionQR(admissionCode string) (string, error) {
	qrc, err := qrcode.New(admissionCode)
	if err != nil {
		return "", err
	}
	tempdir := os.Getenv("TEMP_DIR")
	if tempdir == "" {
		tempdir = os.TempDir()
	}
	filepath := path.Join(tempdir, fmt.Sprintf("%s.jpeg", admissionCode))
	if err := qrc.Save(filepath); err != nil {
		log.Printf("Could not save qrcode to file [%s]: %s\n", filepath, err.Error())
		return "", err
	}
	return filepath, nil
}
