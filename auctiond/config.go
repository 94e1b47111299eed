package main

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cloudx-io/opensale/core"
)

// Config carries everything the daemon needs: the listener settings plus the
// auction parameters supplied by the auctioneer.
type Config struct {
	Port       uint32
	MaxWorkers int
	Auction    core.Config
}

// LoadConfig reads the daemon configuration from the environment. The
// auction parameters are required; AUCTION_ID defaults to a fresh UUID.
func LoadConfig(port uint32) (*Config, error) {
	maxWorkers, err := getRequiredEnvInt("AUCTIOND_MAX_WORKERS")
	if err != nil {
		return nil, fmt.Errorf("failed to get max workers config: %w", err)
	}

	operator, err := getRequiredEnv("AUCTION_OPERATOR")
	if err != nil {
		return nil, err
	}

	floorPrice, err := getRequiredEnvDecimal("AUCTION_FLOOR_PRICE")
	if err != nil {
		return nil, err
	}

	totalSupply, err := getRequiredEnvUint64("AUCTION_TOTAL_SUPPLY")
	if err != nil {
		return nil, err
	}

	opensAt, err := getRequiredEnvTime("AUCTION_OPENS_AT")
	if err != nil {
		return nil, err
	}

	closesAt, err := getRequiredEnvTime("AUCTION_CLOSES_AT")
	if err != nil {
		return nil, err
	}

	maxBids, err := getRequiredEnvInt("AUCTION_MAX_BIDS")
	if err != nil {
		return nil, err
	}

	auctionID := os.Getenv("AUCTION_ID")
	if auctionID == "" {
		auctionID = uuid.NewString()
		log.Printf("INFO: AUCTION_ID not set, generated %s", auctionID)
	}

	return &Config{
		Port:       port,
		MaxWorkers: maxWorkers,
		Auction: core.Config{
			AuctionID:   auctionID,
			Operator:    operator,
			FloorPrice:  floorPrice,
			TotalSupply: totalSupply,
			OpensAt:     opensAt,
			ClosesAt:    closesAt,
			MaxBids:     maxBids,
		},
	}, nil
}

func getRequiredEnv(key string) (string, error) {
	value := os.Getenv(key)
	if value == "" {
		return "", fmt.Errorf("required environment variable %s is not set", key)
	}
	return value, nil
}

func getRequiredEnvInt(key string) (int, error) {
	value, err := getRequiredEnv(key)
	if err != nil {
		return 0, err
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %s (must be a valid integer)", key, value)
	}

	log.Printf("INFO: Using %s=%d from environment", key, intValue)
	return intValue, nil
}

func getRequiredEnvUint64(key string) (uint64, error) {
	value, err := getRequiredEnv(key)
	if err != nil {
		return 0, err
	}

	uintValue, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %s (must be a non-negative integer)", key, value)
	}

	log.Printf("INFO: Using %s=%d from environment", key, uintValue)
	return uintValue, nil
}

func getRequiredEnvDecimal(key string) (decimal.Decimal, error) {
	value, err := getRequiredEnv(key)
	if err != nil {
		return decimal.Zero, err
	}

	decValue, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid value for %s: %s (must be a decimal number)", key, value)
	}

	log.Printf("INFO: Using %s=%s from environment", key, decValue)
	return decValue, nil
}

func getRequiredEnvTime(key string) (time.Time, error) {
	value, err := getRequiredEnv(key)
	if err != nil {
		return time.Time{}, err
	}

	timeValue, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid value for %s: %s (must be RFC3339)", key, value)
	}

	log.Printf("INFO: Using %s=%s from environment", key, timeValue.Format(time.RFC3339))
	return timeValue, nil
}
