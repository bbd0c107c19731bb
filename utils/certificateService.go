package utils

import (
	"fmt"
	"log"

	"comply/config"

	"github.com/go-resty/resty/v2"
)

// GenerateCertificate asks the external PDF service to render the completion
// certificate for an assignment and returns the generated file path.
func GenerateCertificate(competencyType string, assignmentID uint) (string, error) {
	var out struct {
		PdfPath string `json:"pdf_path"`
	}

	client := resty.New()
	resp, err := client.R().
		SetHeader("Authorization", "Bearer "+config.AppConfig.CertServiceKey).
		SetBody(map[string]interface{}{
			"type":          competencyType,
			"assignment_id": assignmentID,
		}).
		SetResult(&out).
		Post(config.AppConfig.CertServiceURL + "/generate")
	if err != nil {
		log.Printf("[CERT] Failed to generate certificate for assignment %d: %v", assignmentID, err)
		return "", err
	}
	if resp.StatusCode() != 200 {
		log.Printf("[CERT] Certificate service returned %d: %s", resp.StatusCode(), resp.String())
		return "", fmt.Errorf("certificate service responded %d", resp.StatusCode())
	}
	return out.PdfPath, nil
}
