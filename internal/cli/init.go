package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/storefront/internal/checkout"
	"github.com/mesh-intelligence/storefront/internal/paths"
	"github.com/mesh-intelligence/storefront/internal/storage"
	"github.com/mesh-intelligence/storefront/pkg/types"
)

// configFile is the structure written to config.yaml. Amounts are strings
// so they round-trip without float conversion.
type configFile struct {
	Storage struct {
		Backend string `yaml:"backend"`
		Key     string `yaml:"key"`
	} `yaml:"storage"`
	DataDir string `yaml:"data_dir,omitempty"`
	Catalog struct {
		Path string `yaml:"path"`
	} `yaml:"catalog"`
	Pricing struct {
		FreeDeliveryAbove string `yaml:"free_delivery_above"`
		DeliveryCharge    string `yaml:"delivery_charge"`
		TaxRate           string `yaml:"tax_rate"`
		MinorUnits        int32  `yaml:"minor_units"`
	} `yaml:"pricing"`
	Display struct {
		CurrencySymbol string `yaml:"currency_symbol"`
		Locale         string `yaml:"locale"`
	} `yaml:"display"`
	Checkout struct {
		MessageLinkBase string `yaml:"message_link_base"`
		MessagePhone    string `yaml:"message_phone"`
		OrderIDPrefix   string `yaml:"order_id_prefix"`
		ClearAfter      string `yaml:"clear_after"`
	} `yaml:"checkout"`
	Receipt struct {
		StoreName    string `yaml:"store_name"`
		StoreAddress string `yaml:"store_address"`
		Footer       string `yaml:"footer"`
	} `yaml:"receipt"`
	Input struct {
		Debounce string `yaml:"debounce"`
	} `yaml:"input"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

func defaultConfigFile(dataDir string) configFile {
	var c configFile
	c.Storage.Backend = defaults[cfgStorageBackend].(string)
	c.Storage.Key = defaults[cfgStorageKey].(string)
	c.DataDir = dataDir
	c.Catalog.Path = paths.CatalogFileName
	c.Pricing.FreeDeliveryAbove = defaults[cfgFreeDeliveryAbove].(string)
	c.Pricing.DeliveryCharge = defaults[cfgDeliveryCharge].(string)
	c.Pricing.TaxRate = defaults[cfgTaxRate].(string)
	c.Pricing.MinorUnits = int32(defaults[cfgMinorUnits].(int))
	c.Display.CurrencySymbol = defaults[cfgCurrencySymbol].(string)
	c.Display.Locale = defaults[cfgLocale].(string)
	c.Checkout.MessageLinkBase = defaults[cfgLinkBase].(string)
	c.Checkout.OrderIDPrefix = defaults[cfgOrderIDPrefix].(string)
	c.Checkout.ClearAfter = string(checkout.ClearNever)
	c.Receipt.StoreName = defaults[cfgStoreName].(string)
	c.Receipt.Footer = defaults[cfgReceiptFooter].(string)
	c.Input.Debounce = defaults[cfgDebounce].(string)
	c.Log.Level = defaults[cfgLogLevel].(string)
	c.Log.Format = defaults[cfgLogFormat].(string)
	return c
}

func sampleCatalog() []types.Product {
	stock := func(n int) *int { return &n }
	return []types.Product{
		{ID: "mug", Title: "Ceramic Mug", Price: decimal.NewFromInt(250), Stock: stock(12), Category: "kitchen"},
		{ID: "poster", Title: "Gallery Poster", Price: decimal.NewFromInt(400), Stock: stock(3), Category: "decor"},
		{ID: "sticker", Title: "Sticker Pack", Price: decimal.RequireFromString("49.50"), Category: "stationery"},
	}
}

func newInitCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize storefront configuration and storage",
		Long: `Init creates the configuration directory with a default config.yaml and a
sample catalog.json, then initializes the storage backend. Existing files are
left untouched.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd, opts)
		},
	}
}

func runInit(cmd *cobra.Command, opts *rootOptions) error {
	configDir, err := paths.ResolveConfigDir(opts.configDir)
	if err != nil {
		return sysErr("resolve config dir: %w", err)
	}
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return sysErr("create config directory: %w", err)
	}

	dataDir := opts.dataDir
	if dataDir != "" {
		if dataDir, err = filepath.Abs(dataDir); err != nil {
			return sysErr("resolve data dir: %w", err)
		}
	}
	if err := writeConfigIfMissing(paths.ConfigFile(configDir), dataDir); err != nil {
		return sysErr("write config: %w", err)
	}
	if err := writeCatalogIfMissing(paths.CatalogFile(configDir, "")); err != nil {
		return sysErr("write catalog: %w", err)
	}

	s, err := loadSettings(opts)
	if err != nil {
		return sysErr("load config: %w", err)
	}
	st, err := storage.Open(s.Storage)
	if err != nil {
		return sysErr("initialize storage: %w", err)
	}
	if err := st.Close(); err != nil {
		return sysErr("finalize storage: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Storefront initialized\n  config: %s\n  data:   %s\n", configDir, s.Storage.DataDir)
	return nil
}

// writeConfigIfMissing creates config.yaml with default values if the file
// does not exist.
func writeConfigIfMissing(path, dataDir string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	cfg := defaultConfigFile(dataDir)
	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

func writeCatalogIfMissing(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	data, err := json.MarshalIndent(sampleCatalog(), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal catalog: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
