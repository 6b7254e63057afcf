package config

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/viper"
)

const ENV_PREFIX = "ALCHEMIST"

type Chain string

const (
	Chain_Mainnet  Chain = "mainnet"
	Chain_Fantom   Chain = "fantom"
	Chain_Optimism Chain = "optimism"
	Chain_Arbitrum Chain = "arbitrum"
)

func ParseChain(c string) (Chain, error) {
	switch Chain(strings.ToLower(c)) {
	case Chain_Mainnet:
		return Chain_Mainnet, nil
	case Chain_Fantom:
		return Chain_Fantom, nil
	case Chain_Optimism:
		return Chain_Optimism, nil
	case Chain_Arbitrum:
		return Chain_Arbitrum, nil
	}
	return "", fmt.Errorf("unsupported chain '%s'", c)
}

// Flag and env var names. Viper keys are the snake_case form of the flag name.
const (
	Debug = "debug"

	ChainFlag = "chain"

	EthereumRpcUrl                 = "ethereum.rpc-url"
	EthereumRpcUseGetBlockReceipts = "ethereum.rpc-use-get-block-receipts"

	DatabaseHost       = "database.host"
	DatabasePort       = "database.port"
	DatabaseUser       = "database.user"
	DatabasePassword   = "database.password"
	DatabaseDbName     = "database.db_name"
	DatabaseSchemaName = "database.schema_name"
	DatabaseSSLMode    = "database.ssl_mode"

	IndexerStartBlock = "indexer.start-block"

	PrometheusEnabled = "prometheus.enabled"
	PrometheusPort    = "prometheus.port"
)

type EthereumRpcConfig struct {
	BaseUrl             string
	UseGetBlockReceipts bool
}

type DatabaseConfig struct {
	Host        string
	Port        int
	User        string
	Password    string
	DbName      string
	SchemaName  string
	SSLMode     string
	SSLCert     string
	SSLKey      string
	SSLRootCert string
}

type IndexerConfig struct {
	StartBlock uint64
}

type PrometheusConfig struct {
	Enabled bool
	Port    int
}

type Config struct {
	Debug             bool
	Chain             Chain
	EthereumRpcConfig EthereumRpcConfig
	DatabaseConfig    DatabaseConfig
	IndexerConfig     IndexerConfig
	PrometheusConfig  PrometheusConfig
}

// NewConfig reads all values out of viper, which has flags and
// ALCHEMIST_-prefixed env vars bound to it by the cmd package.
func NewConfig() *Config {
	return &Config{
		Debug: viper.GetBool(Debug),
		Chain: Chain(strings.ToLower(viper.GetString(ChainFlag))),

		EthereumRpcConfig: EthereumRpcConfig{
			BaseUrl:             viper.GetString(normalizeFlagName(EthereumRpcUrl)),
			UseGetBlockReceipts: viper.GetBool(normalizeFlagName(EthereumRpcUseGetBlockReceipts)),
		},

		DatabaseConfig: DatabaseConfig{
			Host:       viper.GetString(normalizeFlagName(DatabaseHost)),
			Port:       viper.GetInt(normalizeFlagName(DatabasePort)),
			User:       viper.GetString(normalizeFlagName(DatabaseUser)),
			Password:   viper.GetString(normalizeFlagName(DatabasePassword)),
			DbName:     viper.GetString(normalizeFlagName(DatabaseDbName)),
			SchemaName: viper.GetString(normalizeFlagName(DatabaseSchemaName)),
			SSLMode:    viper.GetString(normalizeFlagName(DatabaseSSLMode)),
		},

		IndexerConfig: IndexerConfig{
			StartBlock: viper.GetUint64(normalizeFlagName(IndexerStartBlock)),
		},

		PrometheusConfig: PrometheusConfig{
			Enabled: viper.GetBool(normalizeFlagName(PrometheusEnabled)),
			Port:    viper.GetInt(normalizeFlagName(PrometheusPort)),
		},
	}
}

func normalizeFlagName(name string) string {
	return strings.ReplaceAll(name, "-", "_")
}

// KebabToSnakeCase converts a flag name to the form viper and env var
// bindings expect.
func KebabToSnakeCase(str string) string {
	return strings.ReplaceAll(str, "-", "_")
}

// ContractAddresses holds the contracts the indexer watches and calls for a
// single chain. Every address is lowercase hex.
type ContractAddresses struct {
	// Alchemists are the AlchemistV2 deployments (one per synthetic, e.g.
	// alUSD and alETH).
	Alchemists []string
	// Multicall3 is the canonical Multicall3 deployment, used for batched
	// position reads.
	Multicall3 string
}

// Multicall3 lives at the same address on every supported chain.
const multicall3Address = "0xca11bde05977b3631167028862be2a173976ca11"

var contractAddressesByChain = map[Chain]*ContractAddresses{
	Chain_Mainnet: {
		Alchemists: []string{
			"0x5c6374a2ac4ebc38dea0fc1f8716e5ea1add94dd", // alUSD
			"0x062bf725dc4cdf947aa79ca2aaccd4f385b13b5c", // alETH
		},
		Multicall3: multicall3Address,
	},
	Chain_Fantom: {
		Alchemists: []string{
			"0x76b2e3c5a183970aaad2a48cf6ae79e3e16d3a0e", // alUSD
		},
		Multicall3: multicall3Address,
	},
	Chain_Optimism: {
		Alchemists: []string{
			"0x10294d57a419c8eb78c648372c5baa27fd1484af", // alUSD
			"0xe04bb5b4de60fa2fba69a93ade13a8b3b569d5b4", // alETH
		},
		Multicall3: multicall3Address,
	},
	Chain_Arbitrum: {
		Alchemists: []string{
			"0xb46ee2437468f968b2a84e2585ec216d0ee6bd61", // alUSD
			"0x654e16a0b161b150f5d1c8a5ba6c7a7c7c8f6b23", // alETH
		},
		Multicall3: multicall3Address,
	},
}

func (c *Config) GetContractsMapForChain() *ContractAddresses {
	return contractAddressesByChain[c.Chain]
}

// GetInterestingAddressesForChain lists the contract addresses whose logs the
// indexer stores and processes.
func (c *Config) GetInterestingAddressesForChain() []string {
	contracts := c.GetContractsMapForChain()
	if contracts == nil {
		return []string{}
	}
	return contracts.Alchemists
}

// IsInterestingAddress reports whether logs from the address should be
// decoded and stored.
func (c *Config) IsInterestingAddress(address string) bool {
	return slices.Contains(c.GetInterestingAddressesForChain(), strings.ToLower(address))
}

// GetGenesisBlockNumber returns the block at which the earliest AlchemistV2
// deployment on the chain went live. Indexing never needs to start earlier.
func (c *Config) GetGenesisBlockNumber() uint64 {
	switch c.Chain {
	case Chain_Mainnet:
		return 14265505
	case Chain_Fantom:
		return 31748956
	case Chain_Optimism:
		return 23265138
	case Chain_Arbitrum:
		return 70673920
	default:
		return 0
	}
}
