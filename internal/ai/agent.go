package ai

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/aman-zulfiqar/hustler-market/internal/constants"
	"github.com/sirupsen/logrus"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// AgentConfig holds configuration for the AI agent.
type AgentConfig struct {
	// ClickHouse connection settings.
	ClickHouseAddr     string
	ClickHouseDatabase string
	ClickHouseUsername string
	ClickHousePassword string

	// OpenRouter / LLM settings.
	OpenRouterAPIKey string
	// Model name as understood by OpenRouter, e.g. "openai/gpt-4.1-mini".
	Model string

	Logger *logrus.Logger
}

// Agent provides NL→SQL over the trades table using an LLM and ClickHouse.
type Agent struct {
	llm      llms.Model
	db       *sql.DB
	database string
	logger   *logrus.Logger
}

// NewAgent creates a new Agent with its own ClickHouse and LLM clients.
func NewAgent(ctx context.Context, cfg AgentConfig) (*Agent, error) {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}

	if cfg.OpenRouterAPIKey == "" {
		return nil, fmt.Errorf("OPENROUTER_API_KEY is required")
	}

	if cfg.ClickHouseDatabase == "" {
		cfg.ClickHouseDatabase = "hustler"
	}
	if cfg.Model == "" {
		// Sensible default OpenRouter model (can be overridden by caller).
		cfg.Model = "openai/gpt-4.1-mini"
	}

	// Initialise LLM backed by OpenRouter (OpenAI-compatible API).
	llm, err := openai.New(
		openai.WithToken(cfg.OpenRouterAPIKey),
		openai.WithBaseURL("https://openrouter.ai/api/v1"),
		openai.WithModel(cfg.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create OpenRouter LLM: %w", err)
	}

	// Create ClickHouse *sql.DB using the stdlib wrapper.
	db := clickhouse.OpenDB(&clickhouse.Options{
		Addr: []string{cfg.ClickHouseAddr},
		Auth: clickhouse.Auth{
			Database: cfg.ClickHouseDatabase,
			Username: cfg.ClickHouseUsername,
			Password: cfg.ClickHousePassword,
		},
	})

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping ClickHouse from AI agent: %w", err)
	}

	cfg.Logger.WithFields(logrus.Fields{
		"addr":     cfg.ClickHouseAddr,
		"database": cfg.ClickHouseDatabase,
		"model":    cfg.Model,
	}).Info("initialized AI agent")

	return &Agent{
		llm:      llm,
		db:       db,
		database: cfg.ClickHouseDatabase,
		logger:   cfg.Logger,
	}, nil
}

// Close closes underlying resources.
func (a *Agent) Close() error {
	if a.db != nil {
		a.logger.Debug("closing AI agent ClickHouse connection")
		return a.db.Close()
	}
	return nil
}

// AskResult is the structured result of an Ask or Report call.
type AskResult struct {
	SQL    string
	Answer string
}

// Ask turns a question into SQL restricted to scope, runs it and summarises the rows.
func (a *Agent) Ask(ctx context.Context, question string, scope Scope) (*AskResult, error) {
	if err := scope.validate(); err != nil {
		return nil, err
	}

	sqlQuery, err := a.generateSQL(ctx, question, scope)
	if err != nil {
		return nil, err
	}
	return a.answer(ctx, question, sqlQuery)
}

// Report runs a built-in game report and summarises it. The SQL is fixed, only
// the summary comes from the LLM.
func (a *Agent) Report(ctx context.Context, kind ReportKind, scope Scope) (*AskResult, error) {
	sqlQuery, args, err := reportQuery(kind, a.database+"."+constants.TradesTable, scope)
	if err != nil {
		return nil, err
	}
	return a.answer(ctx, kind.question(), sqlQuery, args...)
}

func (a *Agent) answer(ctx context.Context, question, sqlQuery string, args ...any) (*AskResult, error) {
	rowsJSON, err := a.runQuery(ctx, sqlQuery, args...)
	if err != nil {
		return nil, err
	}

	answer, err := a.summariseResult(ctx, question, sqlQuery, rowsJSON)
	if err != nil {
		return nil, err
	}

	return &AskResult{
		SQL:    sqlQuery,
		Answer: answer,
	}, nil
}

// sqlPrompt is the generation prompt for question over database.table
func sqlPrompt(database, table, question string, scope Scope) string {
	var scopeRules strings.Builder
	for _, f := range scope.filters() {
		fmt.Fprintf(&scopeRules, "- The WHERE clause MUST include %s.\n", f)
	}

	return fmt.Sprintf(`
You are an expert ClickHouse SQL generator for a street trading game. Players
move between locations, buy and sell drugs against per-market pools and close
a turn when they travel.

Use ONLY the following table:
%s

Rules:
- Return a single SELECT query in ClickHouse SQL.
- Do NOT include any explanation or comments, only the SQL.
- The table is %s.%s.
%s- "Per turn" or "per day" questions group by turn. Turn 0 means the turn is unknown.
- Position or netting questions subtract sells from buys per drug, casting to Int64 first.
- Price questions use avg_price for what players paid or received and spot_price for the market
  before the trade; slippage is avg_price versus spot_price, or price_impact.
- Profit questions use net cash: sells add total, buys subtract it.
- If user asks for "top" or "biggest" something, use ORDER BY ... DESC and LIMIT.
- Never modify data: no INSERT, UPDATE, DELETE, DROP, ALTER, CREATE, TRUNCATE.

User question:
%s
`, tradesSchemaDescription(database, table), database, table, scopeRules.String(), question)
}

// generateSQL asks the LLM to produce a safe SELECT query over the trades table.
func (a *Agent) generateSQL(ctx context.Context, question string, scope Scope) (string, error) {
	table := a.database + "." + constants.TradesTable
	prompt := sqlPrompt(a.database, constants.TradesTable, question, scope)

	resp, err := llms.GenerateFromSinglePrompt(
		ctx,
		a.llm,
		prompt,
		llms.WithMaxTokens(512),
	)
	if err != nil {
		return "", fmt.Errorf("LLM SQL generation failed: %w", err)
	}

	sqlQuery := sanitizeSQL(resp)
	if err := validateSQL(sqlQuery, table); err != nil {
		return "", err
	}
	if err := requireScope(sqlQuery, scope); err != nil {
		return "", err
	}

	a.logger.WithFields(logrus.Fields{
		"sql":    sqlQuery,
		"game":   scope.GameID,
		"player": scope.PlayerID,
	}).Debug("generated SQL from question")
	return sqlQuery, nil
}

// runQuery executes the SQL and encodes results as JSON.
func (a *Agent) runQuery(ctx context.Context, sqlQuery string, args ...any) (string, error) {
	rows, err := a.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return "", fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return "", fmt.Errorf("failed to get columns: %w", err)
	}

	var out []map[string]any
	for rows.Next() {
		values := make([]any, len(cols))
		dest := make([]any, len(cols))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return "", fmt.Errorf("failed to scan row: %w", err)
		}

		rowMap := make(map[string]any, len(cols))
		for i, col := range cols {
			rowMap[col] = values[i]
		}
		out = append(out, rowMap)
	}

	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("row iteration error: %w", err)
	}

	data, err := json.Marshal(out)
	if err != nil {
		return "", fmt.Errorf("failed to marshal rows to JSON: %w", err)
	}

	return string(data), nil
}

// summariseResult asks the LLM to answer the question given SQL + JSON results.
func (a *Agent) summariseResult(ctx context.Context, question, sqlQuery, rowsJSON string) (string, error) {
	prompt := fmt.Sprintf(`
You are a helpful assistant analysing trades in a street trading game.
Players buy low at one location, carry drugs in a limited bag and sell high
elsewhere; big orders move the price against them.

User question:
%s

SQL that was executed:
%s

Query results in JSON (array of objects, can be empty):
%s

Instructions:
- If the result set is empty, say that no data was found for the question.
- Otherwise, answer the question concisely using bullet points and short sentences.
- Include key numbers (units, cash totals, average prices) rounded reasonably.
- Refer to turns as "turn N" and to cash as dollars.
- Call out trades or markets where slippage (price_impact) was high.
- Do not restate the raw JSON.
`, question, sqlQuery, rowsJSON)

	resp, err := llms.GenerateFromSinglePrompt(
		ctx,
		a.llm,
		prompt,
		llms.WithMaxTokens(512),
	)
	if err != nil {
		return "", fmt.Errorf("LLM summarisation failed: %w", err)
	}

	return strings.TrimSpace(resp), nil
}

// sanitizeSQL strips code fences and trailing semicolons from the LLM output.
func sanitizeSQL(s string) string {
	s = strings.TrimSpace(s)

	// Remove ``` blocks if present.
	if strings.HasPrefix(s, "```") {
		// Trim the prefix "```" or "```sql"
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSpace(s)
		if strings.HasPrefix(strings.ToLower(s), "sql") {
			s = s[3:]
		}
	}
	s = strings.TrimSpace(s)
	if strings.HasPrefix(strings.ToLower(s), "sql") {
		s = s[3:]
	}
	s = strings.TrimSpace(s)
	if idx := strings.Index(s, "```"); idx >= 0 {
		s = s[:idx]
	}

	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, ";")
	return strings.TrimSpace(s)
}

// validateSQL enforces a conservative safety policy for generated SQL.
// table is the qualified name, e.g. "hustler.trades".
func validateSQL(s, table string) error {
	if s == "" {
		return fmt.Errorf("empty SQL generated by LLM")
	}

	upper := strings.ToUpper(strings.TrimSpace(s))

	if !strings.HasPrefix(upper, "SELECT") && !strings.HasPrefix(upper, "WITH") {
		return fmt.Errorf("only SELECT queries are allowed, got: %s", upper[:min(20, len(upper))])
	}

	disallowed := []string{
		"INSERT ", "UPDATE ", "DELETE ", "DROP ", "ALTER ", "TRUNCATE ",
		"CREATE ", "RENAME ", "ATTACH ", "DETACH ", "SYSTEM ", "OPTIMIZE ",
	}
	for _, kw := range disallowed {
		if strings.Contains(upper, kw) {
			return fmt.Errorf("disallowed SQL keyword %q in generated query", kw)
		}
	}

	if strings.Contains(s, ";") {
		return fmt.Errorf("multiple statements or semicolons are not allowed")
	}

	qualified := strings.ToUpper(table)
	bare := qualified
	if i := strings.LastIndex(qualified, "."); i >= 0 {
		bare = qualified[i+1:]
	}
	if !strings.Contains(upper, "FROM "+bare) && !strings.Contains(upper, "FROM "+qualified) {
		return fmt.Errorf("query must target %s table", table)
	}

	return nil
}
