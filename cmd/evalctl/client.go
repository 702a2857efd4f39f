package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/subcommands"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/simaogato/wealthflow-calculator/internal/adapter/grpc/calculatorv1"
)

// Register the subcommands.
func Register(c *subcommands.Commander) {
	c.Register(&regularCmd{}, "evaluation")
	c.Register(&forceCmd{}, "evaluation")
	c.Register(&reviseCmd{}, "evaluation")

	c.Register(&priceBondCmd{}, "pricing")
	c.Register(&summaryCmd{}, "reporting")
}

var serverAddr = flag.String("addr", envOr("CALCULATOR_ADDR", "localhost:8080"), "Address of the calculator gRPC server")
var apiToken = flag.String("token", envOr("API_TOKEN", "dev-token"), "API token sent in the authorization header")
var timeout = flag.Duration("timeout", 30*time.Minute, "Deadline for a single call")

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// rpc is a CalculatorServiceClient method expression
type rpc func(calculatorv1.CalculatorServiceClient, context.Context, *structpb.Struct, ...grpc.CallOption) (*structpb.Struct, error)

// call sends req to the server and prints the response as JSON.
func call(ctx context.Context, method rpc, req map[string]any) subcommands.ExitStatus {
	in, err := structpb.NewStruct(req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding request: %v\n", err)
		return subcommands.ExitUsageError
	}

	conn, err := grpc.NewClient(*serverAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error connecting to %s: %v\n", *serverAddr, err)
		return subcommands.ExitFailure
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()
	ctx = metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+*apiToken)

	out, err := method(calculatorv1.NewCalculatorServiceClient(conn), ctx, in)
	if err != nil {
		st := status.Convert(err)
		fmt.Fprintf(os.Stderr, "Error: %s: %s\n", st.Code(), st.Message())
		return subcommands.ExitFailure
	}

	b, err := protojson.MarshalOptions{Multiline: true, Indent: "  "}.Marshal(out)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error decoding response: %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Println(string(b))
	return subcommands.ExitSuccess
}
