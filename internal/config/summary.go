package config

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/ducminhle1904/bracket-webhook-bot/internal/sizing"
)

// PrintSummary renders the effective configuration. Secrets are masked.
func (c *Config) PrintSummary(w io.Writer, environment string, rules sizing.Rules) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("BRACKET BOT CONFIGURATION")
	t.SetStyle(table.StyleRounded)

	t.AppendRows([]table.Row{
		{"🏪 Exchange", c.Exchange.Name},
		{"🔧 Environment", environment},
		{"🌐 Port", c.Server.Port},
		{"🔑 Webhook Secret", mask(c.Server.WebhookSecret)},
	})

	t.AppendSeparator()

	maxRisk := "unlimited"
	if c.Trading.MaxRiskUSD > 0 {
		maxRisk = fmt.Sprintf("$%.2f", c.Trading.MaxRiskUSD)
	}
	t.AppendRows([]table.Row{
		{"💰 Default Risk", fmt.Sprintf("$%.2f", c.Trading.DefaultRiskUSD)},
		{"🛑 Max Risk", maxRisk},
		{"🔒 Lock Mode", c.LockMode()},
		{"📏 Min Notional", minNotionalPolicy(rules)},
		{"📊 Size At", sizingPrice(rules)},
	})

	t.AppendSeparator()

	telegram := "disabled"
	if c.Notifications.TelegramToken != "" {
		telegram = "enabled"
	}
	t.AppendRows([]table.Row{
		{"⏱️ Venue Timeout", c.Venue.Timeout},
		{"🚦 Rate Limit", fmt.Sprintf("%d req/s", c.Venue.RateLimit)},
		{"🔁 Retries", c.Venue.Retries},
		{"📝 Journal Dir", c.Logging.Dir},
		{"📣 Telegram", telegram},
	})

	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMin: 18, WidthMax: 18, Align: text.AlignLeft},
		{Number: 2, WidthMin: 25, WidthMax: 40, Align: text.AlignLeft},
	})

	t.Render()
	fmt.Fprintln(w)
}

func minNotionalPolicy(rules sizing.Rules) string {
	if !rules.EnforceMinNotional {
		return "not enforced"
	}
	if rules.MinNotionalFallback > 0 {
		return fmt.Sprintf("enforced (fallback $%.2f)", rules.MinNotionalFallback)
	}
	return "enforced"
}

func sizingPrice(rules sizing.Rules) string {
	if rules.SizeAtLivePrice {
		return "live price"
	}
	return "alert entry price"
}

func mask(secret string) string {
	if len(secret) <= 4 {
		return "****"
	}
	return secret[:2] + "****" + secret[len(secret)-2:]
}
