package env

import (
	"time"

	"github.com/spf13/viper"
)

// GetString returns the string value of the env variable with the given key
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns the int value of the env variable with the given key
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns the bool value of the env variable with the given key
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetFloat64 returns the float value of the env variable with the given key
func GetFloat64(key string) float64 {
	return viper.GetFloat64(key)
}

// GetDuration returns the duration value of the env variable with the given key
func GetDuration(key string) time.Duration {
	return viper.GetDuration(key)
}
