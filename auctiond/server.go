package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"sync"
	"time"

	enclave "github.com/edgebitio/nitro-enclaves-sdk-go"
	"github.com/mdlayher/vsock"

	"github.com/cloudx-io/opensale/core"
	"github.com/cloudx-io/opensale/saleapi"
)

// AuctionServer hosts one auction aggregate behind a vsock listener. The core
// aggregate is single-threaded; mu serializes every operation against it.
type AuctionServer struct {
	cfg        *Config
	mu         sync.Mutex
	auction    *core.Auction
	keyManager *KeyManager
	assets     *assetVault
	currency   *currencyVault
}

// NewAuctionServer builds the server state for one auction run.
func NewAuctionServer(cfg *Config) (*AuctionServer, error) {
	keyManager, err := NewKeyManager()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize key manager: %w", err)
	}

	assets := newAssetVault(cfg.Auction.TotalSupply)
	currency := newCurrencyVault()

	auction, err := core.NewAuction(cfg.Auction, core.SystemClock{}, logSink{}, assets, currency)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize auction: %w", err)
	}

	return &AuctionServer{
		cfg:        cfg,
		auction:    auction,
		keyManager: keyManager,
		assets:     assets,
		currency:   currency,
	}, nil
}

// getEnclaveAttester attempts to get the NSM attester, returns error if not available
func getEnclaveAttester() (EnclaveAttester, error) {
	handle, err := enclave.GetOrInitializeHandle()
	if err != nil {
		return nil, fmt.Errorf("NSM not available: %w", err)
	}
	return handle, nil
}

func (s *AuctionServer) Start() error {
	listener, err := vsock.Listen(s.cfg.Port, nil)
	if err != nil {
		return fmt.Errorf("failed to create vsock listener: %w", err)
	}
	defer func() {
		if err := listener.Close(); err != nil {
			log.Printf("ERROR: Failed to close listener: %v", err)
		}
	}()

	log.Printf("INFO: Auction %s listening on vsock port %d", s.auction.ID(), s.cfg.Port)

	semaphore := make(chan struct{}, s.cfg.MaxWorkers)
	log.Printf("INFO: Worker pool initialized with %d max concurrent workers", s.cfg.MaxWorkers)

	for {
		conn, err := listener.Accept()
		if err != nil {
			log.Printf("ERROR: Failed to accept vsock connection: %v", err)
			continue
		}

		// Acquire worker slot - immediate rejection if pool full
		select {
		case semaphore <- struct{}{}:
			go func(c net.Conn) {
				defer func() { <-semaphore }() // Release worker slot
				s.handleConnection(c)
			}(conn)
		default:
			log.Printf("INFO: No workers available, rejecting connection (pool full)")
			if err := conn.Close(); err != nil {
				log.Printf("ERROR: Failed to close rejected connection: %v", err)
			}
		}
	}
}

func (s *AuctionServer) handleConnection(conn net.Conn) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("ERROR: Panic recovered in handleConnection: %v", r)
		}
		if err := conn.Close(); err != nil {
			log.Printf("ERROR: Failed to close connection: %v", err)
		}
	}()

	_ = conn.SetReadDeadline(time.Now().Add(30 * time.Second))

	var buf bytes.Buffer
	_, err := io.Copy(&buf, conn)
	if err != nil {
		log.Printf("ERROR: Failed to read request: %v", err)
		return
	}

	var baseReq struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(buf.Bytes(), &baseReq); err != nil {
		log.Printf("ERROR: Failed to decode base request: %v", err)
		return
	}

	log.Printf("INFO: Received request type: %s", baseReq.Type)

	var response any

	switch baseReq.Type {
	case "ping":
		response = map[string]any{
			"type":      "pong",
			"message":   "auction daemon is healthy",
			"timestamp": time.Now().Unix(),
		}

	case "key_request":
		attester, err := getEnclaveAttester()
		if err != nil {
			response = errorResponse(fmt.Sprintf("Failed to initialize TEE attester: %v", err))
			log.Printf("ERROR: Key request failed: %v", err)
		} else {
			keyResp, err := HandleKeyRequest(attester, s.keyManager)
			if err != nil {
				response = errorResponse(fmt.Sprintf("Key request failed: %v", err))
				log.Printf("ERROR: Key request failed: %v", err)
			} else {
				response = keyResp
			}
		}

	case "bid_request":
		var bidReq saleapi.BidRequest
		if err := json.Unmarshal(buf.Bytes(), &bidReq); err != nil {
			response = errorResponse(fmt.Sprintf("Failed to decode bid request: %v", err))
			log.Printf("ERROR: Failed to decode bid request: %v", err)
		} else {
			response = s.ProcessBid(bidReq)
		}

	case "settle_request":
		var settleReq saleapi.SettleRequest
		if err := json.Unmarshal(buf.Bytes(), &settleReq); err != nil {
			response = errorResponse(fmt.Sprintf("Failed to decode settle request: %v", err))
			log.Printf("ERROR: Failed to decode settle request: %v", err)
		} else {
			attester, err := getEnclaveAttester()
			if err != nil {
				response = errorResponse(fmt.Sprintf("Failed to initialize TEE attester: %v", err))
				log.Printf("ERROR: Settlement failed: %v", err)
			} else {
				response = s.ProcessSettlement(attester, settleReq)
			}
		}

	case "claim_allocation", "claim_refund":
		var claimReq saleapi.ClaimRequest
		if err := json.Unmarshal(buf.Bytes(), &claimReq); err != nil {
			response = errorResponse(fmt.Sprintf("Failed to decode claim request: %v", err))
			log.Printf("ERROR: Failed to decode claim request: %v", err)
		} else {
			response = s.ProcessClaim(claimReq)
		}

	case "status_request":
		response = s.ProcessStatus()

	default:
		response = errorResponse(fmt.Sprintf("Unknown request type: %s", baseReq.Type))
	}

	encoder := json.NewEncoder(conn)
	if err := encoder.Encode(response); err != nil {
		log.Printf("ERROR: Failed to encode response: %v", err)
	} else {
		log.Printf("INFO: Successfully sent response for %s", baseReq.Type)
	}
}

func errorResponse(message string) map[string]any {
	return map[string]any{
		"type":    "error",
		"message": message,
	}
}

func main() {
	cfg, err := LoadConfig(5000)
	if err != nil {
		log.Fatalf("ERROR: Configuration failed: %v", err)
	}

	server, err := NewAuctionServer(cfg)
	if err != nil {
		log.Fatalf("ERROR: Server initialization failed: %v", err)
	}

	log.Fatal(server.Start())
}
