package netinfo

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/ec2/imds"
	"github.com/hetznercloud/hcloud-go/v2/hcloud/metadata"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// EC2
// =============================================================================

// EC2Metadata reads the public and private IPv4 addresses from the EC2
// instance metadata service.
type EC2Metadata struct {
	client *imds.Client
}

// NewEC2Metadata creates an EC2 source. An empty endpoint uses the SDK
// default. Retries are disabled.
func NewEC2Metadata(endpoint string) *EC2Metadata {
	return &EC2Metadata{client: imds.New(imds.Options{
		Endpoint:          endpoint,
		ClientEnableState: imds.ClientEnabled,
		Retryer:           aws.NopRetryer{},
	})}
}

func (e *EC2Metadata) Name() string { return "ec2" }

// Addresses returns whichever of public-ipv4 and local-ipv4 answered.
func (e *EC2Metadata) Addresses(ctx context.Context) ([]string, error) {
	var out []string
	var firstErr error
	for _, path := range []string{"public-ipv4", "local-ipv4"} {
		v, err := e.get(ctx, path)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		out = append(out, v)
	}
	if len(out) == 0 {
		return nil, firstErr
	}
	return out, nil
}

func (e *EC2Metadata) get(ctx context.Context, path string) (string, error) {
	res, err := e.client.GetMetadata(ctx, &imds.GetMetadataInput{Path: path})
	if err != nil {
		return "", fmt.Errorf("ec2 metadata %s: %w", path, err)
	}
	defer res.Content.Close()
	body, err := io.ReadAll(res.Content)
	if err != nil {
		return "", fmt.Errorf("ec2 metadata %s: %w", path, err)
	}
	return strings.TrimSpace(string(body)), nil
}

// =============================================================================
// Hetzner
// =============================================================================

// HetznerMetadata reads addresses from the Hetzner Cloud metadata service.
type HetznerMetadata struct {
	client *metadata.Client
}

// NewHetznerMetadata creates a Hetzner source. An empty endpoint uses the
// library default. The metadata client has no context support, so timeout
// bounds its HTTP client instead.
func NewHetznerMetadata(endpoint string, timeout time.Duration) *HetznerMetadata {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	opts := []metadata.ClientOption{metadata.WithHTTPClient(&http.Client{Timeout: timeout})}
	if endpoint != "" {
		opts = append(opts, metadata.WithEndpoint(endpoint))
	}
	return &HetznerMetadata{client: metadata.NewClient(opts...)}
}

func (h *HetznerMetadata) Name() string { return "hetzner" }

// privateNetwork is one entry of the private-networks document.
type privateNetwork struct {
	IP string `yaml:"ip"`
}

// Addresses returns the public IPv4 followed by private network addresses.
func (h *HetznerMetadata) Addresses(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []string
	ip, err := h.client.PublicIPv4()
	if err != nil {
		return nil, fmt.Errorf("hetzner metadata public-ipv4: %w", err)
	}
	if ip != nil {
		out = append(out, ip.String())
	}

	doc, err := h.client.PrivateNetworks()
	if err != nil {
		return out, nil
	}
	var networks []privateNetwork
	if err := yaml.Unmarshal([]byte(doc), &networks); err != nil {
		return out, nil
	}
	for _, n := range networks {
		if n.IP != "" {
			out = append(out, n.IP)
		}
	}
	return out, nil
}

// Sources returns the metadata sources enabled by the flags.
func Sources(ec2, hetzner bool, timeout time.Duration) []MetadataSource {
	var out []MetadataSource
	if ec2 {
		out = append(out, NewEC2Metadata(""))
	}
	if hetzner {
		out = append(out, NewHetznerMetadata("", timeout))
	}
	return out
}
