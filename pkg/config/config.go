package config

import (
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/params"
	"k8s.io/apimachinery/pkg/util/validation/field"
)

// Environment variable names for the prover CLI
const (
	EnvChain            = "MERKLE_CHAIN"
	EnvRPCURL           = "MERKLE_RPC_URL"
	EnvKeyFile          = "MERKLE_KEY_FILE"
	EnvKeystorePath     = "MERKLE_KEYSTORE_PATH"
	EnvKeystorePassword = "MERKLE_KEYSTORE_PASSWORD"
	EnvContractInfo     = "MERKLE_CONTRACT_INFO"
	EnvGasLimit         = "MERKLE_GAS_LIMIT"
	EnvGasPriceGwei     = "MERKLE_GAS_PRICE_GWEI"
	EnvNumPrimes        = "MERKLE_NUM_PRIMES"
	EnvSieveLimit       = "MERKLE_SIEVE_LIMIT"
	EnvLeafIndex        = "MERKLE_LEAF_INDEX"
	EnvPersistenceType  = "MERKLE_PERSISTENCE_TYPE"
	EnvDataPath         = "MERKLE_DATA_PATH"
	EnvRedisAddress     = "MERKLE_REDIS_ADDRESS"
	EnvRedisPassword    = "MERKLE_REDIS_PASSWORD"
	EnvRedisDB          = "MERKLE_REDIS_DB"
	EnvVerbose          = "MERKLE_VERBOSE"
)

const (
	DefaultGasLimit         uint64 = 500000
	DefaultGasPriceGwei     uint64 = 10
	DefaultContractInfoFile        = "contract_info.json"

	// RandomLeafIndex asks the prover to pick a leaf at random
	RandomLeafIndex = -1
)

type ChainId uint64

const (
	ChainId_AvalancheFuji ChainId = 43113
	ChainId_BSCTestnet    ChainId = 97
)

type ChainName string

const (
	ChainName_Avalanche ChainName = "avax"
	ChainName_BSC       ChainName = "bsc"
)

// DefaultChain is the chain submissions go to when none is configured
const DefaultChain = ChainName_BSC

func (c ChainName) String() string {
	return string(c)
}

var ChainNameToId = map[ChainName]ChainId{
	ChainName_Avalanche: ChainId_AvalancheFuji,
	ChainName_BSC:       ChainId_BSCTestnet,
}

var ChainIdToName = map[ChainId]ChainName{
	ChainId_AvalancheFuji: ChainName_Avalanche,
	ChainId_BSCTestnet:    ChainName_BSC,
}

// DefaultRPCURLs are public testnet endpoints for each supported chain
var DefaultRPCURLs = map[ChainName]string{
	ChainName_Avalanche: "https://api.avax-test.network/ext/bc/C/rpc",
	ChainName_BSC:       "https://data-seed-prebsc-1-s1.binance.org:8545/",
}

// ParseChainName validates a chain name
func ParseChainName(name string) (ChainName, error) {
	chain := ChainName(strings.ToLower(strings.TrimSpace(name)))
	if _, ok := ChainNameToId[chain]; !ok {
		return "", fmt.Errorf("%s is not a supported chain. Supported: %s", name, GetSupportedChainsString())
	}
	return chain, nil
}

// GetRPCURLForChain returns the default RPC endpoint for a chain
func GetRPCURLForChain(chain ChainName) (string, error) {
	url, ok := DefaultRPCURLs[chain]
	if !ok {
		return "", fmt.Errorf("unsupported chain: %s", chain)
	}
	return url, nil
}

// GetSupportedChainsString returns supported chains for CLI help
func GetSupportedChainsString() string {
	return fmt.Sprintf("%s (%d), %s (%d)",
		ChainName_Avalanche, ChainId_AvalancheFuji, ChainName_BSC, ChainId_BSCTestnet)
}

// ContractInfo is the deployed address and ABI of the proof verifier contract on one chain
type ContractInfo struct {
	Address string          `json:"address"`
	ABI     json.RawMessage `json:"abi"`
}

// ParsedABI parses the contract ABI
func (ci *ContractInfo) ParsedABI() (abi.ABI, error) {
	if len(ci.ABI) == 0 {
		return abi.ABI{}, fmt.Errorf("contract ABI is empty")
	}
	// Some deployments store the ABI as a JSON encoded string
	raw := ci.ABI
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		raw = json.RawMessage(asString)
	}
	parsed, err := abi.JSON(strings.NewReader(string(raw)))
	if err != nil {
		return abi.ABI{}, fmt.Errorf("failed to parse contract ABI: %w", err)
	}
	return parsed, nil
}

// Validate validates the contract info
func (ci *ContractInfo) Validate() error {
	var allErrors field.ErrorList
	if ci.Address == "" {
		allErrors = append(allErrors, field.Required(field.NewPath("address"), "address is required"))
	} else if !common.IsHexAddress(ci.Address) {
		allErrors = append(allErrors, field.Invalid(field.NewPath("address"), ci.Address, "invalid address format"))
	}
	if len(ci.ABI) == 0 {
		allErrors = append(allErrors, field.Required(field.NewPath("abi"), "abi is required"))
	} else if _, err := ci.ParsedABI(); err != nil {
		allErrors = append(allErrors, field.Invalid(field.NewPath("abi"), "<abi>", err.Error()))
	}
	if len(allErrors) > 0 {
		return allErrors.ToAggregate()
	}
	return nil
}

// LoadContractInfo reads the contract info for one chain from a JSON file of the form
// {"<chain>": {"address": "0x...", "abi": [...]}}
func LoadContractInfo(path string, chain ChainName) (*ContractInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read contract info %s: %w", path, err)
	}

	var byChain map[ChainName]*ContractInfo
	if err := json.Unmarshal(data, &byChain); err != nil {
		return nil, fmt.Errorf("failed to parse contract info %s: %w", path, err)
	}

	info, ok := byChain[chain]
	if !ok || info == nil {
		return nil, fmt.Errorf("contract info %s has no entry for chain %s", path, chain)
	}
	if err := info.Validate(); err != nil {
		return nil, fmt.Errorf("invalid contract info for chain %s: %w", chain, err)
	}
	return info, nil
}

type PersistenceType string

const (
	PersistenceType_Memory PersistenceType = "memory"
	PersistenceType_Badger PersistenceType = "badger"
	PersistenceType_Redis  PersistenceType = "redis"
)

// PersistenceConfig selects where submission records are stored
type PersistenceConfig struct {
	Type          PersistenceType `json:"type"`
	DataPath      string          `json:"data_path"`
	RedisAddress  string          `json:"redis_address"`
	RedisPassword string          `json:"redis_password"`
	RedisDB       int             `json:"redis_db"`
}

// Validate validates the persistence configuration
func (pc *PersistenceConfig) Validate() error {
	var allErrors field.ErrorList
	switch pc.Type {
	case PersistenceType_Memory:
	case PersistenceType_Badger:
		if pc.DataPath == "" {
			allErrors = append(allErrors, field.Required(field.NewPath("data_path"), "data_path is required for badger persistence"))
		}
	case PersistenceType_Redis:
		if pc.RedisAddress == "" {
			allErrors = append(allErrors, field.Required(field.NewPath("redis_address"), "redis_address is required for redis persistence"))
		}
		if pc.RedisDB < 0 || pc.RedisDB > 15 {
			allErrors = append(allErrors, field.Invalid(field.NewPath("redis_db"), pc.RedisDB, "must be between 0-15"))
		}
	default:
		allErrors = append(allErrors, field.NotSupported(field.NewPath("type"), pc.Type,
			[]string{string(PersistenceType_Memory), string(PersistenceType_Badger), string(PersistenceType_Redis)}))
	}
	if len(allErrors) > 0 {
		return allErrors.ToAggregate()
	}
	return nil
}

// SubmitterConfig represents the complete configuration for proving and submitting a leaf
type SubmitterConfig struct {
	Chain  ChainName `json:"chain"`
	RpcUrl string    `json:"rpc_url"` // Overrides the chain default when set

	// Account key: KeystorePath takes precedence over KeyFile
	KeyFile          string `json:"key_file"`
	KeystorePath     string `json:"keystore_path"`
	KeystorePassword string `json:"-"`

	ContractInfoPath string `json:"contract_info_path"`

	GasLimit     uint64 `json:"gas_limit"`
	GasPriceGwei uint64 `json:"gas_price_gwei"`

	NumPrimes  int `json:"num_primes"`
	SieveLimit int `json:"sieve_limit"`
	LeafIndex  int `json:"leaf_index"` // RandomLeafIndex picks one at random

	Persistence PersistenceConfig `json:"persistence"`

	Debug bool `json:"debug"`
}

// Validate validates the submitter configuration and fills in the RPC URL default
func (c *SubmitterConfig) Validate() error {
	var allErrors field.ErrorList

	if _, ok := ChainNameToId[c.Chain]; !ok {
		allErrors = append(allErrors, field.NotSupported(field.NewPath("chain"), c.Chain,
			[]string{string(ChainName_Avalanche), string(ChainName_BSC)}))
	} else if c.RpcUrl == "" {
		c.RpcUrl = DefaultRPCURLs[c.Chain]
	}

	if c.KeyFile == "" && c.KeystorePath == "" {
		allErrors = append(allErrors, field.Required(field.NewPath("key_file"), "key_file or keystore_path is required"))
	}
	if c.ContractInfoPath == "" {
		allErrors = append(allErrors, field.Required(field.NewPath("contract_info_path"), "contract_info_path is required"))
	}
	if c.NumPrimes <= 0 {
		allErrors = append(allErrors, field.Invalid(field.NewPath("num_primes"), c.NumPrimes, "must be positive"))
	}
	if c.SieveLimit < 2 {
		allErrors = append(allErrors, field.Invalid(field.NewPath("sieve_limit"), c.SieveLimit, "must be at least 2"))
	}
	if c.LeafIndex < RandomLeafIndex {
		allErrors = append(allErrors, field.Invalid(field.NewPath("leaf_index"), c.LeafIndex, "must be -1 (random) or a leaf index"))
	} else if c.NumPrimes > 0 && c.LeafIndex >= c.NumPrimes {
		allErrors = append(allErrors, field.Invalid(field.NewPath("leaf_index"), c.LeafIndex, fmt.Sprintf("must be below num_primes (%d)", c.NumPrimes)))
	}
	if err := c.Persistence.Validate(); err != nil {
		allErrors = append(allErrors, field.Invalid(field.NewPath("persistence"), c.Persistence.Type, err.Error()))
	}

	if len(allErrors) > 0 {
		return allErrors.ToAggregate()
	}
	return nil
}

// ChainID returns the numeric chain ID of the configured chain
func (c *SubmitterConfig) ChainID() *big.Int {
	return new(big.Int).SetUint64(uint64(ChainNameToId[c.Chain]))
}

// GasPriceWei returns the configured gas price in wei
func (c *SubmitterConfig) GasPriceWei() *big.Int {
	return new(big.Int).Mul(new(big.Int).SetUint64(c.GasPriceGwei), big.NewInt(params.GWei))
}
