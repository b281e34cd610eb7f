package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/medibid/auction-api/internal/auth"
	"github.com/medibid/auction-api/internal/awards"
	"github.com/medibid/auction-api/internal/bidding"
	"github.com/medibid/auction-api/internal/database"
	"github.com/medibid/auction-api/internal/handshake"
	"github.com/medibid/auction-api/internal/listings"
	"github.com/medibid/auction-api/internal/notify"
	"github.com/medibid/auction-api/internal/types"
	"github.com/medibid/auction-api/pkg/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	minAuctions   = 5
	maxAuctions   = 25
	numBidders    = 5
	bidsPerBidder = 4
	serverAddress = "http://localhost:8080"
	jwtSecret     = "medibid-secret-key"
)

var deviceTypes = []string{"Ultrasound", "X-Ray", "Ventilator", "Infusion Pump", "Patient Monitor"}

// init configures the logger for the simulation with pretty printing and timestamp
func init() {
	output := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}
	log.Logger = zerolog.New(output).With().Timestamp().Logger()
}

// routeStats tracks performance statistics for an API endpoint
type routeStats struct {
	name       string
	durations  []time.Duration
	totalCalls int
	failures   int
}

// addDuration records a new duration measurement for the route
func (rs *routeStats) addDuration(d time.Duration) {
	rs.durations = append(rs.durations, d)
	rs.totalCalls++
}

// calculate computes performance statistics from recorded durations
// Returns min, max, mean, median, 95th percentile, and 99th percentile durations
func (rs *routeStats) calculate() (min, max, mean, median, p95, p99 time.Duration) {
	if len(rs.durations) == 0 {
		return 0, 0, 0, 0, 0, 0
	}

	sort.Slice(rs.durations, func(i, j int) bool {
		return rs.durations[i] < rs.durations[j]
	})

	min = rs.durations[0]
	max = rs.durations[len(rs.durations)-1]

	var sum time.Duration
	for _, d := range rs.durations {
		sum += d
	}
	mean = sum / time.Duration(len(rs.durations))

	median = rs.durations[len(rs.durations)/2]

	p95idx := int(math.Ceil(float64(len(rs.durations))*0.95)) - 1
	p99idx := int(math.Ceil(float64(len(rs.durations))*0.99)) - 1
	p95 = rs.durations[p95idx]
	p99 = rs.durations[p99idx]

	return
}

// simulationClient handles HTTP communication with the auction API.
// Tokens are held per simulated user since every auction involves one
// seller and several bidders.
type simulationClient struct {
	baseURL string
	client  *http.Client
	tokens  map[string]string
	mu      sync.Mutex
	stats   map[string]*routeStats
}

// newSimulationClient creates and initializes a new simulation client
// It authenticates every simulated user and prepares performance tracking
func newSimulationClient(users []string) (*simulationClient, error) {
	sc := &simulationClient{
		baseURL: serverAddress,
		client:  &http.Client{Timeout: 10 * time.Second},
		tokens:  make(map[string]string),
		stats: map[string]*routeStats{
			"auth":     {name: "Authentication"},
			"publish":  {name: "Publish Listing"},
			"bid":      {name: "Place Bid"},
			"view":     {name: "Get Listing"},
			"award":    {name: "Award"},
			"advance":  {name: "Handshake Advance"},
			"complete": {name: "Handshake Complete"},
			"deposit":  {name: "Deposit Confirm"},
		},
	}

	for _, user := range users {
		token, err := sc.authenticate(user)
		if err != nil {
			return nil, fmt.Errorf("failed to authenticate %s: %w", user, err)
		}
		sc.tokens[user] = token
	}

	return sc, nil
}

func (sc *simulationClient) record(route string, start time.Time, failed bool) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.stats[route].addDuration(time.Since(start))
	if failed {
		sc.stats[route].failures++
	}
}

// authenticate performs API authentication and returns a JWT token
func (sc *simulationClient) authenticate(user string) (string, error) {
	start := time.Now()
	failed := false
	defer func() { sc.record("auth", start, failed) }()

	credentials := map[string]string{
		"api_key":    user,
		"api_secret": user + "-secret",
	}

	body, err := json.Marshal(credentials)
	if err != nil {
		failed = true
		return "", err
	}

	resp, err := sc.client.Post(
		fmt.Sprintf("%s/api/v1/auth/token", sc.baseURL),
		"application/json",
		bytes.NewBuffer(body),
	)
	if err != nil {
		failed = true
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		failed = true
		return "", fmt.Errorf("authentication failed with status: %d", resp.StatusCode)
	}

	var result struct {
		Data struct {
			Token string `json:"jwt_token"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		failed = true
		return "", err
	}

	return result.Data.Token, nil
}

// call issues an authenticated request and decodes the standard
// response envelope into out (when non-nil).
func (sc *simulationClient) call(route, method, path, user string, payload, out interface{}) error {
	start := time.Now()
	failed := false
	defer func() { sc.record(route, start, failed) }()

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			failed = true
			return err
		}
		body = bytes.NewBuffer(raw)
	}

	req, err := http.NewRequest(method, sc.baseURL+path, body)
	if err != nil {
		failed = true
		return err
	}

	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", sc.tokens[user]))
	req.Header.Set("Content-Type", "application/json")

	resp, err := sc.client.Do(req)
	if err != nil {
		failed = true
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		failed = true
		return fmt.Errorf("failed to read response body: %w", err)
	}
	log.Debug().Str("path", path).Str("response", string(respBody)).Msg("API response")

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		failed = true
		return fmt.Errorf("%s %s failed with status %d: %s", method, path, resp.StatusCode, string(respBody))
	}

	if out == nil {
		return nil
	}

	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		failed = true
		return fmt.Errorf("failed to decode response: %w, body: %s", err, string(respBody))
	}

	if err := json.Unmarshal(envelope.Data, out); err != nil {
		failed = true
		return fmt.Errorf("failed to decode response data: %w, body: %s", err, string(respBody))
	}

	return nil
}

// runAuction drives one listing through its entire lifecycle:
// publish -> concurrent bids -> award -> two-sided handshake -> completed.
func runAuction(sc *simulationClient, auctionNum int) (deviceType string, finalAmount int64, err error) {
	seller := "seller-1"
	deviceType = deviceTypes[rand.Intn(len(deviceTypes))]

	// Publish
	var listing types.AuctionListing
	err = sc.call("publish", "POST", "/api/v1/listings", seller, map[string]interface{}{
		"title":       fmt.Sprintf("%s unit #%d", deviceType, auctionNum),
		"device_type": deviceType,
		"description": "Refurbished, fully serviced",
		"timeout_at":  time.Now().Add(time.Hour).Format(time.RFC3339),
	}, &listing)
	if err != nil {
		return deviceType, 0, fmt.Errorf("publish failed: %w", err)
	}

	// Concurrent bidders
	var wg sync.WaitGroup
	for b := 1; b <= numBidders; b++ {
		wg.Add(1)
		go func(bidder string) {
			defer wg.Done()
			for i := 0; i < bidsPerBidder; i++ {
				amount := int64(rand.Intn(50)+1) * bidding.BidIncrement
				var bid types.BidRecord
				if err := sc.call("bid", "POST",
					fmt.Sprintf("/api/v1/listings/%s/bids", listing.ListingID),
					bidder, map[string]interface{}{"amount": amount}, &bid); err != nil {
					// Duplicate amounts are expected under random bidding
					log.Debug().Err(err).Str("bidder", bidder).Msg("bid rejected")
					continue
				}
				time.Sleep(time.Duration(rand.Intn(20)) * time.Millisecond)
			}
		}(fmt.Sprintf("bidder-%d", b))
	}
	wg.Wait()

	// Fetch the view to find the leader
	var view types.ListingView
	if err := sc.call("view", "GET",
		fmt.Sprintf("/api/v1/listings/%s", listing.ListingID), seller, nil, &view); err != nil {
		return deviceType, 0, fmt.Errorf("view failed: %w", err)
	}
	if view.HighestBid == nil {
		return deviceType, 0, fmt.Errorf("no bids recorded for listing %s", listing.ListingID)
	}

	winner := view.HighestBid.BidderID
	finalAmount = view.HighestBid.Amount

	sellerInfo := map[string]interface{}{
		"company":      "MedResale Ltd",
		"contact":      "010-1234-5678",
		"address":      "12 Device Street",
		"bank_name":    "First Bank",
		"bank_account": "110-234-567890",
	}

	// Award the highest bid
	if err := sc.call("award", "POST",
		fmt.Sprintf("/api/v1/listings/%s/award", listing.ListingID), seller,
		map[string]interface{}{"bid_id": view.HighestBid.BidID, "seller_info": sellerInfo}, nil); err != nil {
		return deviceType, 0, fmt.Errorf("award failed: %w", err)
	}

	// Buyer submits transfer info (1 -> 2) and proposes a visit (2 -> 3)
	if err := sc.call("advance", "POST",
		fmt.Sprintf("/api/v1/listings/%s/buyer/advance", listing.ListingID), winner,
		map[string]interface{}{"step": 1, "info": sellerInfo}, nil); err != nil {
		return deviceType, 0, fmt.Errorf("buyer step 1 failed: %w", err)
	}
	if err := sc.call("advance", "POST",
		fmt.Sprintf("/api/v1/listings/%s/buyer/advance", listing.ListingID), winner,
		map[string]interface{}{"step": 2, "visit_date": "2026-09-15", "visit_time": "14:00"}, nil); err != nil {
		return deviceType, 0, fmt.Errorf("buyer step 2 failed: %w", err)
	}

	// Seller confirms details (1 -> 2)
	if err := sc.call("advance", "POST",
		fmt.Sprintf("/api/v1/listings/%s/seller/advance", listing.ListingID), seller,
		map[string]interface{}{"step": 1}, nil); err != nil {
		return deviceType, 0, fmt.Errorf("seller step 1 failed: %w", err)
	}

	// Administrative deposit confirmation unblocks the seller side
	if err := sc.call("deposit", "POST",
		fmt.Sprintf("/api/v1/internal/listings/%s/deposit", listing.ListingID), seller, nil, nil); err != nil {
		return deviceType, 0, fmt.Errorf("deposit confirm failed: %w", err)
	}

	// Seller reaches the visit step (2 -> 3)
	if err := sc.call("advance", "POST",
		fmt.Sprintf("/api/v1/listings/%s/seller/advance", listing.ListingID), seller,
		map[string]interface{}{"step": 2}, nil); err != nil {
		return deviceType, 0, fmt.Errorf("seller step 2 failed: %w", err)
	}

	// Both sides confirm handover, random order
	completions := []func() error{
		func() error {
			return sc.call("complete", "POST",
				fmt.Sprintf("/api/v1/listings/%s/seller/complete", listing.ListingID), seller, nil, nil)
		},
		func() error {
			return sc.call("complete", "POST",
				fmt.Sprintf("/api/v1/listings/%s/buyer/complete", listing.ListingID), winner, nil, nil)
		},
	}
	if rand.Intn(2) == 0 {
		completions[0], completions[1] = completions[1], completions[0]
	}
	for _, complete := range completions {
		if err := complete(); err != nil {
			return deviceType, 0, fmt.Errorf("complete failed: %w", err)
		}
	}

	// Verify terminal state
	if err := sc.call("view", "GET",
		fmt.Sprintf("/api/v1/listings/%s", listing.ListingID), seller, nil, &view); err != nil {
		return deviceType, 0, fmt.Errorf("final view failed: %w", err)
	}
	if view.Listing.Status != types.StatusCompleted {
		return deviceType, 0, fmt.Errorf("listing %s finished with status %s", listing.ListingID, view.Listing.Status)
	}

	return deviceType, finalAmount, nil
}

// printPerformanceStats outputs formatted performance statistics for all API endpoints
func (sc *simulationClient) printPerformanceStats() {
	fmt.Println("\nAPI Performance Statistics")
	fmt.Println(strings.Repeat("-", 100))
	fmt.Printf("%-20s %10s %10s %10s %10s %10s %10s %10s %10s\n",
		"Endpoint", "Calls", "Errors", "Min", "Max", "Mean", "Median", "P95", "P99")
	fmt.Println(strings.Repeat("-", 100))

	for _, stats := range sc.stats {
		min, max, mean, median, p95, p99 := stats.calculate()
		fmt.Printf("%-20s %10d %10d %10s %10s %10s %10s %10s %10s\n",
			stats.name,
			stats.totalCalls,
			stats.failures,
			min.Round(time.Millisecond),
			max.Round(time.Millisecond),
			mean.Round(time.Millisecond),
			median.Round(time.Millisecond),
			p95.Round(time.Millisecond),
			p99.Round(time.Millisecond))
	}
	fmt.Println(strings.Repeat("-", 100))
}

// main runs the auction simulation
// It starts a local API server and drives full auction lifecycles
func main() {
	go func() {
		if err := startServer(); err != nil {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for server to start
	time.Sleep(2 * time.Second)

	users := []string{"seller-1"}
	for b := 1; b <= numBidders; b++ {
		users = append(users, fmt.Sprintf("bidder-%d", b))
	}

	simClient, err := newSimulationClient(users)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize simulation client")
	}

	targetAuctions := rand.Intn(maxAuctions-minAuctions) + minAuctions
	log.Info().Int("target_auctions", targetAuctions).Msg("Starting simulation")

	stats := struct {
		TotalAuctions int
		Completed     int
		Failed        int
		TotalValue    int64
		StartTime     time.Time
		DeviceTypes   map[string]int
	}{
		StartTime:   time.Now(),
		DeviceTypes: make(map[string]int),
	}
	stats.TotalAuctions = targetAuctions

	for i := 1; i <= targetAuctions; i++ {
		deviceType, amount, err := runAuction(simClient, i)
		if err != nil {
			log.Error().Err(err).Int("auction", i).Msg("Auction failed")
			stats.Failed++
			continue
		}
		stats.Completed++
		stats.TotalValue += amount
		stats.DeviceTypes[deviceType]++
		log.Info().
			Int("auction", i).
			Str("device_type", deviceType).
			Int64("final_amount", amount).
			Msg("Auction completed")
	}

	duration := time.Since(stats.StartTime)
	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("AUCTION SIMULATION SUMMARY")
	fmt.Println(strings.Repeat("=", 80))

	fmt.Printf(`
Auction Statistics
------------------
Total Auctions:   %d
Completed:        %d
Failed:           %d
Total Value:      %d
Duration:         %v

Device Type Distribution
------------------------
`, stats.TotalAuctions, stats.Completed, stats.Failed,
		stats.TotalValue, duration.Round(time.Millisecond))

	maxTypeCount := 0
	for _, count := range stats.DeviceTypes {
		if count > maxTypeCount {
			maxTypeCount = count
		}
	}

	for deviceType, count := range stats.DeviceTypes {
		barLength := int(float64(count) / float64(maxTypeCount) * 20)
		bar := strings.Repeat("#", barLength)
		fmt.Printf("%-16s: %s (%d)\n", deviceType, bar, count)
	}

	fmt.Println("\n" + strings.Repeat("=", 80))

	successRate := float64(stats.Completed) / float64(stats.TotalAuctions) * 100
	log.Info().
		Float64("success_rate", successRate).
		Int("total_auctions", stats.TotalAuctions).
		Int("completed", stats.Completed).
		Int64("total_value", stats.TotalValue).
		Dur("duration", duration).
		Msg("Simulation completed")

	simClient.printPerformanceStats()
}

// startServer initializes and starts the auction API server
// Sets up all required services, handlers and routes
func startServer() error {
	db, err := database.NewDatabase("simulation.db")
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	notifier := notify.NopNotifier{}

	authService := auth.NewService(jwtSecret)
	authService.RegisterAPICredentials("seller-1", "seller-1-secret")
	for b := 1; b <= numBidders; b++ {
		user := fmt.Sprintf("bidder-%d", b)
		authService.RegisterAPICredentials(user, user+"-secret")
	}
	authHandlers := auth.NewGinHandlers(authService)

	biddingService := bidding.NewService(db, nil)
	biddingHandlers := bidding.NewGinHandlers(biddingService)

	listingService := listings.NewService(db, biddingService)
	listingHandlers := listings.NewGinHandlers(listingService)

	awardService := awards.NewService(db, notifier)
	awardHandlers := awards.NewGinHandlers(awardService)

	handshakeService := handshake.NewService(db, notifier)
	handshakeHandlers := handshake.NewGinHandlers(handshakeService)

	gin.SetMode(gin.ReleaseMode)
	router := gin.Default()

	v1 := router.Group("/api/v1")
	{
		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/token", authHandlers.GenerateTokenHandler())
		}

		public := v1.Group("/listings")
		{
			public.GET("", listingHandlers.ListOpenHandler())
			public.GET("/:listing_id", listingHandlers.GetHandler())
			public.GET("/:listing_id/quote", listingHandlers.QuoteHandler())
			public.GET("/:listing_id/bids", biddingHandlers.ListBidsHandler())
		}

		private := v1.Group("/listings")
		private.Use(middleware.JWTAuth(jwtSecret))
		{
			private.POST("", listingHandlers.PublishHandler())
			private.POST("/:listing_id/bids", biddingHandlers.PlaceBidHandler())
			private.GET("/:listing_id/bids/mine", biddingHandlers.MyBidsHandler())
			private.POST("/:listing_id/award", awardHandlers.AwardHandler())
			private.POST("/:listing_id/visit", handshakeHandlers.ProposeVisitHandler())
			private.POST("/:listing_id/seller/advance", handshakeHandlers.SellerAdvanceHandler())
			private.POST("/:listing_id/buyer/advance", handshakeHandlers.BuyerAdvanceHandler())
			private.POST("/:listing_id/seller/complete", handshakeHandlers.SellerCompleteHandler())
			private.POST("/:listing_id/buyer/complete", handshakeHandlers.BuyerCompleteHandler())
		}

		internal := v1.Group("/internal")
		internal.Use(middleware.InternalAuth(jwtSecret))
		{
			internal.POST("/listings/:listing_id/deposit", handshakeHandlers.ConfirmDepositHandler())
		}
	}

	return router.Run(":8080")
}
