package cli

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/mesh-intelligence/storefront/internal/cart"
	"github.com/mesh-intelligence/storefront/internal/checkout"
	"github.com/mesh-intelligence/storefront/internal/paths"
	"github.com/mesh-intelligence/storefront/internal/pricing"
	"github.com/mesh-intelligence/storefront/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	envPrefix      = "STOREFRONT"
)

// Config keys.
const (
	cfgStorageBackend    = "storage.backend"
	cfgStorageKey        = "storage.key"
	cfgDataDir           = "data_dir"
	cfgCatalogPath       = "catalog.path"
	cfgFreeDeliveryAbove = "pricing.free_delivery_above"
	cfgDeliveryCharge    = "pricing.delivery_charge"
	cfgTaxRate           = "pricing.tax_rate"
	cfgMinorUnits        = "pricing.minor_units"
	cfgCurrencySymbol    = "display.currency_symbol"
	cfgLocale            = "display.locale"
	cfgLinkBase          = "checkout.message_link_base"
	cfgMessagePhone      = "checkout.message_phone"
	cfgOrderIDPrefix     = "checkout.order_id_prefix"
	cfgClearAfter        = "checkout.clear_after"
	cfgStoreName         = "receipt.store_name"
	cfgStoreAddress      = "receipt.store_address"
	cfgReceiptFooter     = "receipt.footer"
	cfgDebounce          = "input.debounce"
	cfgLogLevel          = "log.level"
	cfgLogFormat         = "log.format"
)

// defaults holds the value of every key when neither config.yaml nor the
// environment sets it.
var defaults = map[string]any{
	cfgStorageBackend:    types.BackendSQLite,
	cfgStorageKey:        types.DefaultCartKey,
	cfgFreeDeliveryAbove: "1000",
	cfgDeliveryCharge:    "50",
	cfgTaxRate:           "0.18",
	cfgMinorUnits:        pricing.DefaultMinorUnits,
	cfgCurrencySymbol:    checkout.DefaultCurrencySymbol,
	cfgLocale:            "en",
	cfgLinkBase:          checkout.DefaultLinkBase,
	cfgOrderIDPrefix:     checkout.DefaultOrderIDPrefix,
	cfgClearAfter:        string(checkout.ClearNever),
	cfgStoreName:         "Storefront",
	cfgStoreAddress:      "",
	cfgReceiptFooter:     "Thank you for shopping with us!",
	cfgDebounce:          cart.DefaultDebounce.String(),
	cfgLogLevel:          "warn",
	cfgLogFormat:         "console",
}

// settings is the resolved configuration of one CLI invocation.
type settings struct {
	ConfigDir   string
	Storage     types.StorageConfig
	CartKey     string
	CatalogPath string
	Pricing     types.PricingConfig
	Currency    string
	Locale      string
	Checkout    checkout.Config
	OrderPrefix string
	Receipt     checkout.ReceiptInfo
	Debounce    time.Duration
	LogLevel    string
	LogFormat   string
}

// loadConfig reads config.yaml from configDir with STOREFRONT_* environment
// overrides. A missing config.yaml is not an error.
func loadConfig(configDir string) (*viper.Viper, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return v, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	return v, nil
}

// loadSettings resolves directories and decodes every key.
func loadSettings(opts *rootOptions) (*settings, error) {
	configDir, err := paths.ResolveConfigDir(opts.configDir)
	if err != nil {
		return nil, fmt.Errorf("resolve config dir: %w", err)
	}
	v, err := loadConfig(configDir)
	if err != nil {
		return nil, err
	}
	dataDir, err := paths.ResolveDataDir(opts.dataDir, v.GetString(cfgDataDir))
	if err != nil {
		return nil, fmt.Errorf("resolve data dir: %w", err)
	}

	s := &settings{
		ConfigDir: configDir,
		Storage: types.StorageConfig{
			Backend: strings.ToLower(v.GetString(cfgStorageBackend)),
			DataDir: dataDir,
		},
		CartKey:     v.GetString(cfgStorageKey),
		CatalogPath: paths.CatalogFile(configDir, v.GetString(cfgCatalogPath)),
		Currency:    v.GetString(cfgCurrencySymbol),
		Locale:      v.GetString(cfgLocale),
		OrderPrefix: v.GetString(cfgOrderIDPrefix),
		Receipt: checkout.ReceiptInfo{
			StoreName:    v.GetString(cfgStoreName),
			StoreAddress: v.GetString(cfgStoreAddress),
			Footer:       v.GetString(cfgReceiptFooter),
		},
		LogLevel:  v.GetString(cfgLogLevel),
		LogFormat: v.GetString(cfgLogFormat),
	}
	if err := s.Storage.Validate(); err != nil {
		return nil, err
	}

	if s.Pricing, err = decodePricing(v); err != nil {
		return nil, err
	}

	policy, err := checkout.ParseClearPolicy(v.GetString(cfgClearAfter))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", cfgClearAfter, err)
	}
	s.Checkout = checkout.Config{
		Pricing:    s.Pricing,
		LinkBase:   v.GetString(cfgLinkBase),
		Phone:      v.GetString(cfgMessagePhone),
		ClearAfter: policy,
	}

	if s.Debounce, err = time.ParseDuration(v.GetString(cfgDebounce)); err != nil {
		return nil, fmt.Errorf("%s: %w", cfgDebounce, err)
	}
	return s, nil
}

func decodePricing(v *viper.Viper) (types.PricingConfig, error) {
	var cfg types.PricingConfig
	fields := []struct {
		key string
		dst *decimal.Decimal
	}{
		{cfgFreeDeliveryAbove, &cfg.FreeDeliveryAbove},
		{cfgDeliveryCharge, &cfg.DeliveryCharge},
		{cfgTaxRate, &cfg.TaxRate},
	}
	for _, f := range fields {
		d, err := decimal.NewFromString(v.GetString(f.key))
		if err != nil {
			return cfg, fmt.Errorf("%s: %w", f.key, err)
		}
		if d.IsNegative() {
			return cfg, fmt.Errorf("%s: must not be negative", f.key)
		}
		*f.dst = d
	}
	cfg.MinorUnits = v.GetInt32(cfgMinorUnits)
	return cfg, nil
}
