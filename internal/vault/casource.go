package vault

import (
	"context"
	"errors"
	"fmt"
	"time"

	vaultapi "github.com/hashicorp/vault/api"

	"github.com/vyrodovalexey/trustgw/internal/ca"
	"github.com/vyrodovalexey/trustgw/internal/observability"
)

// ErrVaultDisabled is returned when the source is used while disabled.
var ErrVaultDisabled = errors.New("vault is disabled")

// defaultTimeout bounds each Vault request.
const defaultTimeout = 10 * time.Second

// Config holds configuration for the Vault CA source.
type Config struct {
	Enabled bool
	Address string
	Token   string

	// Mount is the KV v2 mount point; Path is the secret path under it.
	Mount string
	Path  string

	Timeout time.Duration
}

// CASource reads trusted CA definitions from Vault.
type CASource struct {
	client  *vaultapi.Client
	config  *Config
	logger  observability.Logger
	enabled bool
}

// SourceOption is a functional option for the CA source.
type SourceOption func(*CASource)

// WithLogger sets the logger for the source.
func WithLogger(logger observability.Logger) SourceOption {
	return func(s *CASource) {
		s.logger = logger
	}
}

// New creates a CA source. A disabled config yields a source whose
// operations return ErrVaultDisabled.
func New(cfg *Config, opts ...SourceOption) (*CASource, error) {
	s := &CASource{
		config: cfg,
		logger: observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if cfg == nil || !cfg.Enabled {
		return s, nil
	}

	apiConfig := vaultapi.DefaultConfig()
	apiConfig.Address = cfg.Address
	if cfg.Timeout > 0 {
		apiConfig.Timeout = cfg.Timeout
	} else {
		apiConfig.Timeout = defaultTimeout
	}

	client, err := vaultapi.NewClient(apiConfig)
	if err != nil {
		return nil, fmt.Errorf("create vault client: %w", err)
	}
	if cfg.Token != "" {
		client.SetToken(cfg.Token)
	}

	s.client = client
	s.enabled = true
	return s, nil
}

// Enabled reports whether the source is active.
func (s *CASource) Enabled() bool {
	return s.enabled
}

// LoadTrustedCAs reads the CA list from the configured secret. The
// secret's "cas" field holds a list of objects with fingerprint, name,
// trustLevel, allowedPermissions, and revokedSerials.
func (s *CASource) LoadTrustedCAs(ctx context.Context) ([]*ca.TrustedCA, error) {
	if !s.enabled {
		return nil, ErrVaultDisabled
	}

	secret, err := s.client.KVv2(s.config.Mount).Get(ctx, s.config.Path)
	if err != nil {
		return nil, fmt.Errorf("read vault secret %s/%s: %w", s.config.Mount, s.config.Path, err)
	}

	raw, ok := secret.Data["cas"].([]interface{})
	if !ok {
		return nil, fmt.Errorf("vault secret %s/%s: missing or malformed cas field", s.config.Mount, s.config.Path)
	}

	cas := make([]*ca.TrustedCA, 0, len(raw))
	for i, item := range raw {
		entry, ok := item.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("vault secret cas[%d]: expected object, got %T", i, item)
		}
		trustedCA, err := parseCA(entry)
		if err != nil {
			return nil, fmt.Errorf("vault secret cas[%d]: %w", i, err)
		}
		cas = append(cas, trustedCA)
	}

	s.logger.Info("loaded trusted CAs from vault",
		observability.Int("count", len(cas)),
		observability.String("path", s.config.Mount+"/"+s.config.Path),
	)

	return cas, nil
}

func parseCA(entry map[string]interface{}) (*ca.TrustedCA, error) {
	fingerprint, _ := entry["fingerprint"].(string)
	if fingerprint == "" {
		return nil, errors.New("fingerprint is required")
	}
	name, _ := entry["name"].(string)
	if name == "" {
		return nil, errors.New("name is required")
	}

	level := ca.ParseTrustLevel(stringField(entry, "trustLevel"))

	revoked := make(map[string]struct{})
	for _, serial := range stringListField(entry, "revokedSerials") {
		revoked[serial] = struct{}{}
	}

	return &ca.TrustedCA{
		Fingerprint:        fingerprint,
		Name:               name,
		TrustLevel:         level,
		AllowedPermissions: stringListField(entry, "allowedPermissions"),
		RevokedSerials:     revoked,
	}, nil
}

func stringField(entry map[string]interface{}, key string) string {
	s, _ := entry[key].(string)
	return s
}

func stringListField(entry map[string]interface{}, key string) []string {
	raw, ok := entry[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
