package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/spf13/viper"
)

const (
	// DatadirKey is the local data directory where the history database and
	// metric dumps are stored.
	DatadirKey = "DATADIR"
	// LogLevelKey are the different logging levels. For reference on the values https://godoc.org/github.com/sirupsen/logrus#Level
	LogLevelKey = "LOG_LEVEL"
	// NodeRPCAddrKey is the websocket address <host:port> of the node RPC
	// interface used for the rpc submission method.
	NodeRPCAddrKey = "NODE_RPC_ADDR"
	// NodeRESTURLKey is the base URL of the node REST interface used for the
	// rest submission method.
	NodeRESTURLKey = "NODE_REST_URL"
	// BroadcastMethodKey selects the submission method, one of auto, rpc, rest.
	BroadcastMethodKey = "BROADCAST_METHOD"
	// TargetBitsKey is the number of trailing zero bits a mined transaction
	// id must carry.
	TargetBitsKey = "TARGET_BITS"
	// MaxIterationsKey caps the number of nonces tried in a mining session.
	MaxIterationsKey = "MAX_ITERATIONS"
	// WorkersKey is the number of concurrent mining workers.
	WorkersKey = "WORKERS"
	// BatchSizeKey pins the mining batch size, 0 derives it from the target
	// difficulty.
	BatchSizeKey = "BATCH_SIZE"
	// ProgressIntervalKey is the cadence of mining progress reports.
	ProgressIntervalKey = "PROGRESS_INTERVAL"
	// RetryAttemptsKey is the number of extra submissions after a failing
	// broadcast.
	RetryAttemptsKey = "RETRY_ATTEMPTS"
	// RetryDelayKey is the pause between submissions.
	RetryDelayKey = "RETRY_DELAY"
	// ConfirmationTimeoutKey bounds the wait for a broadcast confirmation.
	ConfirmationTimeoutKey = "CONFIRMATION_TIMEOUT"
	// PollIntervalKey is the cadence of confirmation polling.
	PollIntervalKey = "POLL_INTERVAL"
	// EnableStatsKey enables periodic memory statistics logging.
	EnableStatsKey = "ENABLE_STATS"
	// StatsIntervalKey defines the interval for printing basic statistics.
	StatsIntervalKey = "STATS_INTERVAL"

	DbLocation    = "db"
	StatsLocation = "stats"
)

var vip *viper.Viper
var defaultDatadir = btcutil.AppDataDir("vanityd", false)

func InitConfig() error {
	vip = viper.New()
	vip.SetEnvPrefix("VANITY")
	vip.AutomaticEnv()

	vip.SetDefault(DatadirKey, defaultDatadir)
	vip.SetDefault(LogLevelKey, 4)
	vip.SetDefault(NodeRPCAddrKey, "localhost:16110")
	vip.SetDefault(BroadcastMethodKey, "auto")
	vip.SetDefault(TargetBitsKey, 8)
	vip.SetDefault(MaxIterationsKey, 10000000)
	vip.SetDefault(WorkersKey, 1)
	vip.SetDefault(BatchSizeKey, 0)
	vip.SetDefault(ProgressIntervalKey, time.Second)
	vip.SetDefault(RetryAttemptsKey, 2)
	vip.SetDefault(RetryDelayKey, 2*time.Second)
	vip.SetDefault(ConfirmationTimeoutKey, 2*time.Minute)
	vip.SetDefault(PollIntervalKey, 2*time.Second)
	vip.SetDefault(EnableStatsKey, false)
	vip.SetDefault(StatsIntervalKey, 600)

	if err := validate(); err != nil {
		return fmt.Errorf("error while validating config: %s", err)
	}

	if err := initDatadir(); err != nil {
		return fmt.Errorf("error while creating datadir: %s", err)
	}

	return nil
}

func GetString(key string) string {
	return vip.GetString(key)
}

func GetInt(key string) int {
	return vip.GetInt(key)
}

func GetUint64(key string) uint64 {
	return vip.GetUint64(key)
}

func GetDuration(key string) time.Duration {
	return vip.GetDuration(key)
}

func GetBool(key string) bool {
	return vip.GetBool(key)
}

func GetDatadir() string {
	return GetString(DatadirKey)
}

func validate() error {
	datadir := GetString(DatadirKey)
	if len(datadir) <= 0 {
		return fmt.Errorf("missing datadir")
	}

	switch method := GetString(BroadcastMethodKey); method {
	case "auto", "rpc", "rest":
	default:
		return fmt.Errorf(
			"%s must be one of auto, rpc, rest, got %q", BroadcastMethodKey, method,
		)
	}

	targetBits := GetInt(TargetBitsKey)
	if targetBits < 1 || targetBits > 64 {
		return fmt.Errorf("%s must be in range [1, 64]", TargetBitsKey)
	}

	if GetUint64(MaxIterationsKey) <= 0 {
		return fmt.Errorf("%s must be a positive number", MaxIterationsKey)
	}

	if GetInt(WorkersKey) <= 0 {
		return fmt.Errorf("%s must be a positive number", WorkersKey)
	}

	if GetInt(RetryAttemptsKey) < 0 {
		return fmt.Errorf("%s must not be negative", RetryAttemptsKey)
	}

	if GetString(BroadcastMethodKey) == "rest" && !vip.IsSet(NodeRESTURLKey) {
		return fmt.Errorf(
			"%s is required when %s is rest", NodeRESTURLKey, BroadcastMethodKey,
		)
	}

	return nil
}

func initDatadir() error {
	datadir := GetDatadir()
	if err := makeDirectoryIfNotExists(filepath.Join(datadir, DbLocation)); err != nil {
		return err
	}

	if GetBool(EnableStatsKey) {
		if err := makeDirectoryIfNotExists(filepath.Join(datadir, StatsLocation)); err != nil {
			return err
		}
	}
	return nil
}

func makeDirectoryIfNotExists(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return os.MkdirAll(path, os.ModeDir|0755)
	}
	return nil
}
