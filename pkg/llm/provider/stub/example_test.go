package stub_test

import (
	"context"
	"fmt"

	"github.com/lwmacct/251220-go-pkg-chain/pkg/llm"
	"github.com/lwmacct/251220-go-pkg-chain/pkg/llm/provider/stub"
	"github.com/lwmacct/251220-go-pkg-chain/pkg/logger"
)

func Example_basic() {
	client := stub.New(
		stub.WithResponse("Hello, I am a stub assistant."),
		stub.WithLogger(logger.Discard()),
	)

	res, err := client.Invoke(context.Background(), llm.NewPromptRequest(stub.Model, "Hello!"))
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	fmt.Println(res.Text)
	// Output: Hello, I am a stub assistant.
}

func Example_script() {
	client := stub.New(
		stub.WithScript(&stub.Script{
			Rules: []stub.Rule{
				{Contains: "sky", Reply: "Rayleigh scattering."},
				{Contains: "rainbow", Reply: "Refraction, {{input}}"},
			},
		}),
		stub.WithLogger(logger.Discard()),
	)

	ctx := context.Background()
	for _, input := range []string{"Why is the sky blue?", "and a rainbow?"} {
		res, _ := client.Invoke(ctx, llm.NewPromptRequest(stub.Model, input))
		fmt.Println(res.Text)
	}
	// Output:
	// Rayleigh scattering.
	// Refraction, and a rainbow?
}
