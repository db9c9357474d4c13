package store

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/container"
	"github.com/rs/zerolog/log"
	"gocloud.dev/blob/azureblob"
)

// DefaultEndpointSuffix is the public cloud blob endpoint.
const DefaultEndpointSuffix = "blob.core.windows.net"

// AzureConfig identifies a single container and the identity used to read it.
type AzureConfig struct {
	// Account is the storage account name (required).
	Account string

	// Container is the container name (required).
	Container string

	// ClientID selects a user-assigned managed identity. When empty the
	// default credential chain is used: environment, workload identity,
	// system-assigned managed identity, then developer logins.
	ClientID string

	// EndpointSuffix defaults to DefaultEndpointSuffix. Sovereign clouds use
	// their own, e.g. "blob.core.chinacloudapi.cn".
	EndpointSuffix string

	// Prefix is an optional virtual directory inside the container.
	Prefix string

	// ApplicationID is sent in the User-Agent of storage requests.
	ApplicationID string

	// ServiceURL replaces https://<account>.<EndpointSuffix>, for emulators
	// and private endpoints.
	ServiceURL string

	// Credential replaces the ambient chain built by NewCredential.
	Credential azcore.TokenCredential

	// Transport replaces the HTTP client used for storage requests.
	Transport policy.Transporter
}

// ContainerURL returns https://<account>.<suffix>/<container>.
func (c AzureConfig) ContainerURL() (string, error) {
	if c.Account == "" {
		return "", errors.New("storage account is required")
	}
	if c.Container == "" {
		return "", errors.New("container is required")
	}

	if c.ServiceURL != "" {
		u, err := url.Parse(c.ServiceURL)
		if err != nil {
			return "", fmt.Errorf("invalid service url: %w", err)
		}
		return u.JoinPath(c.Container).String(), nil
	}

	suffix := c.EndpointSuffix
	if suffix == "" {
		suffix = DefaultEndpointSuffix
	}

	u := url.URL{
		Scheme: "https",
		Host:   c.Account + "." + suffix,
		Path:   "/" + c.Container,
	}

	return u.String(), nil
}

// NewCredential returns an ambient token credential. No secret material is
// read here; tokens come from the hosting platform or a developer login.
func NewCredential(clientID string) (azcore.TokenCredential, error) {
	if clientID == "" {
		cred, err := azidentity.NewDefaultAzureCredential(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create default azure credential: %w", err)
		}
		return cred, nil
	}

	mi, err := azidentity.NewManagedIdentityCredential(&azidentity.ManagedIdentityCredentialOptions{
		ID: azidentity.ClientID(clientID),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create managed identity credential: %w", err)
	}

	// fall back to `az login` so the same configuration works on a laptop
	cli, err := azidentity.NewAzureCLICredential(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create azure cli credential: %w", err)
	}

	chain, err := azidentity.NewChainedTokenCredential([]azcore.TokenCredential{mi, cli}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create credential chain: %w", err)
	}

	return chain, nil
}

// NewAzureBlob opens the configured container through the gocloud.dev azureblob
// driver. Credential construction does not touch the network; the first token
// is fetched on the first read.
func NewAzureBlob(ctx context.Context, cfg AzureConfig) (*GocloudBlob, error) {
	containerURL, err := cfg.ContainerURL()
	if err != nil {
		return nil, fmt.Errorf("invalid azure configuration: %w", err)
	}

	cred := cfg.Credential
	if cred == nil {
		cred, err = NewCredential(cfg.ClientID)
		if err != nil {
			return nil, err
		}
	}

	client, err := container.NewClient(containerURL, cred, clientOptions(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to create container client: %w", err)
	}

	bucket, err := azureblob.OpenBucket(ctx, client, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open azure bucket: %w", err)
	}

	log.Debug().
		Str("container_url", containerURL).
		Bool("user_assigned_identity", cfg.ClientID != "").
		Msg("opened azure container")

	return NewGocloudBlobFromBucket(bucket, cfg.Prefix), nil
}

// clientOptions leaves TryTimeout unset. The retry policy keeps a per-try
// deadline alive until a streamed body is closed, so any deadline there would
// cut long downloads short; the request context bounds each read instead.
func clientOptions(cfg AzureConfig) *container.ClientOptions {
	return &container.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    3,
				RetryDelay:    200 * time.Millisecond,
				MaxRetryDelay: 5 * time.Second,
			},
			Telemetry: policy.TelemetryOptions{
				ApplicationID: cfg.ApplicationID,
			},
			Transport: cfg.Transport,
		},
	}
}
