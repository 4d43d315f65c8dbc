package paramstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
)

const (
	serviceURLSuffix = "/service_url"
	apiTokenSuffix   = "/api_token"
)

// ServiceSettings locate and authenticate the form service.
type ServiceSettings struct {
	BaseURL  string
	APIToken string
}

// tokenPayload is the expected JSON shape stored in SSM for the API token.
type tokenPayload struct {
	Token string `json:"token"`
}

// LoadServiceSettings reads <prefix>/service_url (required) and
// <prefix>/api_token (optional, {"token": "..."}).
func LoadServiceSettings(ctx context.Context, getter Getter, prefix string) (ServiceSettings, error) {
	if getter == nil {
		return ServiceSettings{}, errors.New("paramstore: getter must not be nil")
	}
	prefix = strings.TrimRight(strings.TrimSpace(prefix), "/")
	if prefix == "" {
		return ServiceSettings{}, errors.New("paramstore: parameter prefix is empty")
	}

	baseURL, err := getter.GetParameter(ctx, prefix+serviceURLSuffix)
	if err != nil {
		return ServiceSettings{}, fmt.Errorf("paramstore: load service url: %w", err)
	}
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return ServiceSettings{}, errors.New("paramstore: service url is empty")
	}

	raw, err := getter.GetParameter(ctx, prefix+apiTokenSuffix)
	var notFound *types.ParameterNotFound
	switch {
	case errors.As(err, &notFound):
		return ServiceSettings{BaseURL: baseURL}, nil
	case err != nil:
		return ServiceSettings{}, fmt.Errorf("paramstore: load api token: %w", err)
	}

	var tp tokenPayload
	if err := json.Unmarshal([]byte(raw), &tp); err != nil {
		return ServiceSettings{}, fmt.Errorf("paramstore: unmarshal api token value as JSON: %w", err)
	}
	if tp.Token == "" {
		return ServiceSettings{}, errors.New("paramstore: api token is empty")
	}
	return ServiceSettings{BaseURL: baseURL, APIToken: tp.Token}, nil
}
