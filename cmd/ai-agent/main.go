package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/aman-zulfiqar/hustler-market/internal/ai"
	"github.com/aman-zulfiqar/hustler-market/internal/config"

	"github.com/sirupsen/logrus"
)

const replHelp = `Commands:
  :scope <game> [player]   restrict questions and reports (":scope" alone clears it)
  :report <kind>           run a built-in report: netting, prices, leaders
  :help                    show this help
Anything else is asked as a question. Empty line to exit.`

func main() {
	queryFlag := flag.String("q", "", "Run a single natural language query and exit")
	reportFlag := flag.String("report", "", "Run a built-in report and exit: netting | prices | leaders")
	gameFlag := flag.String("game", "", "Restrict to one game")
	playerFlag := flag.String("player", "", "Restrict to one player of -game")
	modelFlag := flag.String("model", "", "OpenRouter model name (default AI_MODEL)")
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	logger.SetLevel(logrus.InfoLevel)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("invalid configuration")
	}
	if cfg.OpenRouterAPIKey == "" {
		logger.Fatal("OPENROUTER_API_KEY is required for the AI agent")
	}

	model := cfg.AIModel
	if *modelFlag != "" {
		model = *modelFlag
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	agent, err := ai.NewAgent(ctx, ai.AgentConfig{
		ClickHouseAddr:     cfg.ClickHouseAddr,
		ClickHouseDatabase: cfg.ClickHouseDatabase,
		ClickHouseUsername: cfg.ClickHouseUsername,
		ClickHousePassword: cfg.ClickHousePassword,
		OpenRouterAPIKey:   cfg.OpenRouterAPIKey,
		Model:              model,
		Logger:             logger,
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to create AI agent")
	}
	defer agent.Close()

	s := &session{agent: agent, scope: ai.Scope{GameID: *gameFlag, PlayerID: *playerFlag}}

	switch {
	case *reportFlag != "":
		if err := s.report(ctx, *reportFlag); err != nil {
			logger.WithError(err).Fatal("report failed")
		}
	case *queryFlag != "":
		if err := s.ask(ctx, *queryFlag); err != nil {
			logger.WithError(err).Fatal("query failed")
		}
	default:
		s.repl(ctx)
	}
}

type session struct {
	agent *ai.Agent
	scope ai.Scope
}

func (s *session) ask(ctx context.Context, q string) error {
	res, err := s.agent.Ask(ctx, q, s.scope)
	if err != nil {
		return err
	}
	printResult(res)
	return nil
}

func (s *session) report(ctx context.Context, kind string) error {
	res, err := s.agent.Report(ctx, ai.ReportKind(strings.ToLower(kind)), s.scope)
	if err != nil {
		return err
	}
	printResult(res)
	return nil
}

func printResult(res *ai.AskResult) {
	fmt.Printf("\nSQL:\n%s\n\n", strings.TrimSpace(res.SQL))
	fmt.Printf("Answer:\n%s\n\n", res.Answer)
}

func (s *session) repl(ctx context.Context) {
	fmt.Println("Hustler Trades AI Agent (NL → ClickHouse SQL)")
	fmt.Println(replHelp)
	fmt.Println()

	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Printf("%s> ", scopePrompt(s.scope))
		line, err := reader.ReadString('\n')
		if err != nil {
			fmt.Println("error reading input:", err)
			return
		}
		line = strings.TrimSpace(line)
		if line == "" {
			fmt.Println("bye")
			return
		}
		if ctx.Err() != nil {
			return
		}

		cmd, args := parseCommand(line)
		switch cmd {
		case "help":
			fmt.Println(replHelp)
			continue
		case "scope":
			s.scope = scopeFromArgs(args)
			continue
		}

		// Short cooldown to avoid hammering the LLM if user spams enter.
		time.Sleep(200 * time.Millisecond)

		switch cmd {
		case "report":
			if len(args) != 1 {
				fmt.Println("usage: :report netting | prices | leaders")
				continue
			}
			err = s.report(ctx, args[0])
		case "":
			err = s.ask(ctx, line)
		default:
			err = fmt.Errorf("unknown command :%s", cmd)
		}
		if err != nil {
			fmt.Println("error:", err)
		}
	}
}

// parseCommand splits ":name arg..." lines; plain questions return an empty name
func parseCommand(line string) (string, []string) {
	if !strings.HasPrefix(line, ":") {
		return "", nil
	}
	fields := strings.Fields(strings.TrimPrefix(line, ":"))
	if len(fields) == 0 {
		return "", nil
	}
	return strings.ToLower(fields[0]), fields[1:]
}

func scopeFromArgs(args []string) ai.Scope {
	var s ai.Scope
	if len(args) > 0 {
		s.GameID = args[0]
	}
	if len(args) > 1 {
		s.PlayerID = args[1]
	}
	return s
}

func scopePrompt(s ai.Scope) string {
	switch {
	case s.PlayerID != "":
		return s.GameID + "/" + s.PlayerID + " "
	case s.GameID != "":
		return s.GameID + " "
	}
	return ""
}
