//go:build integration

package integration

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/simaogato/wealthflow-calculator/internal/adapter/grpc/calculatorv1"
	"github.com/simaogato/wealthflow-calculator/internal/adapter/repository/postgres"
)

const testInstrument = "IT-7203"

var (
	db          *postgres.DB
	grpcClient  calculatorv1.CalculatorServiceClient
	grpcConn    *grpc.ClientConn
	portfolioID int64
)

// TestMain sets up the test environment
func TestMain(m *testing.M) {
	ctx := context.Background()

	// 1. Connect to Database and make sure the schema exists
	var err error
	db, err = postgres.NewDB(getDBConnectionString())
	if err != nil {
		panic(fmt.Sprintf("Failed to connect to database: %v", err))
	}
	if err := postgres.Migrate(db, zerolog.Nop()); err != nil {
		panic(fmt.Sprintf("Failed to migrate database: %v", err))
	}

	// 2. Connect to gRPC Server
	grpcConn, err = grpc.NewClient(getGRPCAddress(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		panic(fmt.Sprintf("Failed to connect to gRPC server: %v", err))
	}
	grpcClient = calculatorv1.NewCalculatorServiceClient(grpcConn)

	// 3. Seed a fresh portfolio so reruns never collide
	portfolioID = 100000 + time.Now().UnixNano()%1000000
	if err := seedMarketData(ctx); err != nil {
		panic(fmt.Sprintf("Failed to seed market data: %v", err))
	}

	code := m.Run()

	grpcConn.Close()
	db.Close()
	os.Exit(code)
}

// seedMarketData inserts one buy on 2024-04-01 and closes for 2024-04-01..2024-04-08
func seedMarketData(ctx context.Context) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO executions (id, portfolio_id, instrument_code, execution_date, side, quantity, price, currency)
		VALUES ($1, $2, $3, '2024-04-01', 'BUY', 10, 100, 'JPY')`,
		uuid.New(), portfolioID, testInstrument)
	if err != nil {
		return err
	}

	closes := map[string]int{
		"2024-04-01": 110, "2024-04-02": 111, "2024-04-03": 112,
		"2024-04-04": 113, "2024-04-05": 114, "2024-04-08": 120,
	}
	for day, price := range closes {
		_, err := db.ExecContext(ctx, `
			INSERT INTO prices (instrument_code, base_date, close_price, deleted)
			VALUES ($1, $2, $3, FALSE)
			ON CONFLICT (instrument_code, base_date) DO UPDATE SET close_price = EXCLUDED.close_price, deleted = FALSE`,
			testInstrument, day, price)
		if err != nil {
			return err
		}
	}
	return nil
}

func mustStruct(t *testing.T, m map[string]any) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(m)
	require.NoError(t, err)
	return s
}

// TestEndToEndFlow tests the complete flow: Force -> Summary -> Force again -> Revision
func TestEndToEndFlow(t *testing.T) {
	ctx := getAuthContext()

	// The window is padded with weekend boundaries so the interior is Mon 2024-04-01..Fri 2024-04-05
	window := map[string]any{
		"portfolio_id": portfolioID,
		"start_date":   "2024-03-31",
		"end_date":     "2024-04-06",
	}

	// Step 1: Force evaluation values all five business days
	t.Run("Step 1: Force evaluation", func(t *testing.T) {
		resp, err := grpcClient.EvaluateForce(ctx, mustStruct(t, window))
		require.NoError(t, err, "EvaluateForce should succeed")

		assert.Equal(t, "FORCE", resp.Fields["mode"].GetStringValue())
		assert.Equal(t, float64(5), resp.Fields["created"].GetNumberValue())
		assert.Equal(t, float64(0), resp.Fields["deleted"].GetNumberValue())
	})

	// Step 2: Summary reflects the stored records
	t.Run("Step 2: Portfolio summary", func(t *testing.T) {
		resp, err := grpcClient.GetPortfolioSummary(ctx, mustStruct(t, map[string]any{
			"portfolio_id": portfolioID,
			"base_date":    "2024-04-03",
		}))
		require.NoError(t, err, "GetPortfolioSummary should succeed")

		assert.Equal(t, "1000", resp.Fields["book_value"].GetStringValue())
		assert.Equal(t, "1120", resp.Fields["market_value"].GetStringValue())
		assert.Equal(t, "120", resp.Fields["unrealized_pl"].GetStringValue())
	})

	// Step 3: A second force run replaces the same records
	t.Run("Step 3: Force evaluation is repeatable", func(t *testing.T) {
		resp, err := grpcClient.EvaluateForce(ctx, mustStruct(t, window))
		require.NoError(t, err)

		assert.Equal(t, float64(5), resp.Fields["deleted"].GetNumberValue())
		assert.Equal(t, float64(5), resp.Fields["created"].GetNumberValue())

		var count int
		err = db.QueryRowContext(context.Background(),
			`SELECT COUNT(*) FROM evaluations WHERE portfolio_id = $1`, portfolioID).Scan(&count)
		require.NoError(t, err)
		assert.Equal(t, 5, count, "No duplicate records after a rerun")
	})

	// Step 4: Revision unlocks a record once its real close exists
	t.Run("Step 4: Revision unlocks late prices", func(t *testing.T) {
		_, err := db.ExecContext(context.Background(), `
			INSERT INTO evaluations (id, portfolio_id, instrument_code, base_date, quantity, book_value,
				current_value, current_pl, lock_out, evaluation_date_base_date, update_user, update_timestamp, deleted)
			VALUES ($1, $2, $3, '2024-04-08', 10, 100, 114, 140, TRUE, '2024-04-05', 'integration', NOW(), FALSE)`,
			uuid.New(), portfolioID, testInstrument)
		require.NoError(t, err)

		resp, err := grpcClient.EvaluateRevision(ctx, mustStruct(t, map[string]any{"portfolio_id": portfolioID}))
		require.NoError(t, err)
		assert.Equal(t, float64(1), resp.Fields["updated"].GetNumberValue())
		assert.Equal(t, float64(1), resp.Fields["unlocked"].GetNumberValue())

		var lockOut bool
		var currentValue string
		err = db.QueryRowContext(context.Background(), `
			SELECT lock_out, current_value::text FROM evaluations
			WHERE portfolio_id = $1 AND base_date = '2024-04-08'`, portfolioID).Scan(&lockOut, &currentValue)
		require.NoError(t, err)
		assert.False(t, lockOut)
		assert.Equal(t, "120", currentValue)
	})
}

// TestPricePrecisionSurvivesStorage checks close prices are not rounded to a fixed scale
func TestPricePrecisionSurvivesStorage(t *testing.T) {
	ctx := context.Background()
	const closePrice = "1234.567890123456789"

	_, err := db.ExecContext(ctx, `
		INSERT INTO prices (instrument_code, base_date, close_price, deleted)
		VALUES ($1, '2024-04-01', $2, FALSE)
		ON CONFLICT (instrument_code, base_date) DO UPDATE SET close_price = EXCLUDED.close_price`,
		testInstrument+"-P", closePrice)
	require.NoError(t, err)

	var stored string
	err = db.QueryRowContext(ctx, `SELECT close_price::text FROM prices WHERE instrument_code = $1`,
		testInstrument+"-P").Scan(&stored)
	require.NoError(t, err)
	assert.Equal(t, closePrice, stored)
}

// TestUnauthenticated verifies the API token is enforced
func TestUnauthenticated(t *testing.T) {
	_, err := grpcClient.EvaluateRevision(context.Background(), mustStruct(t, map[string]any{"portfolio_id": portfolioID}))
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}

// getAuthContext returns a context with authorization metadata
func getAuthContext() context.Context {
	token := os.Getenv("API_TOKEN")
	if token == "" {
		token = "dev-token"
	}
	md := metadata.New(map[string]string{
		"authorization": token,
	})
	return metadata.NewOutgoingContext(context.Background(), md)
}

// getDBConnectionString returns the database connection string from environment or defaults
func getDBConnectionString() string {
	if connStr := os.Getenv("DB_CONN_STR"); connStr != "" {
		return connStr
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		envOr("DB_HOST", "localhost"),
		envOr("DB_PORT", "5432"),
		envOr("DB_USER", "postgres"),
		envOr("DB_PASSWORD", "postgres"),
		envOr("DB_NAME", "calculator"),
	)
}

// getGRPCAddress returns the gRPC server address from environment or defaults
func getGRPCAddress() string {
	return envOr("GRPC_ADDRESS", "localhost:8080")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
