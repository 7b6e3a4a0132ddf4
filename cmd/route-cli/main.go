package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/taskpilot/llm-router/internal/core"
	"github.com/taskpilot/llm-router/internal/di"
	"github.com/taskpilot/llm-router/internal/pipeline"
)

func main() {
	flags := di.ParseFlags()

	container, err := di.BuildCLIContainer(flags)
	if err != nil {
		fmt.Printf("Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	if err := container.Invoke(run); err != nil {
		fmt.Printf("Application error: %v\n", err)
		os.Exit(1)
	}
}

// run routes a single request and prints the result as JSON
func run(flags *di.CLIFlags, logger *zap.Logger, p *pipeline.Pipeline) error {
	defer logger.Sync()

	input := flags.Input
	if input == "" {
		logger.Info("Reading request from stdin")
		scanner := bufio.NewScanner(os.Stdin)
		var lines []string
		for scanner.Scan() {
			lines = append(lines, scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
		input = strings.Join(lines, "\n")
	}

	userCtx := &core.UserContext{
		UserID:      flags.UserID,
		UserName:    flags.UserName,
		ManagerName: flags.Manager,
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	result := p.Process(ctx, input, userCtx)

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(result); err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}

	if !result.Success {
		os.Exit(2)
	}
	return nil
}
