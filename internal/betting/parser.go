package betting

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// Canonical bet types.
const (
	BetTypeMoneyline = "ML"
	BetTypeSpread    = "SPREAD"
	BetTypeOver      = "OVER"
	BetTypeUnder     = "UNDER"
	BetTypeTotal     = "TOTAL"
)

var ErrUnparsableBet = errors.New("unrecognized bet format")

// Patterns accepted for free-text bets, e.g. "Lakers ML $500",
// "Barcelona Money Line 750", "Over 2.5 TOTAL $100". The long-form
// pattern runs first: otherwise "Warriors Point Spread $300" backtracks
// "Point" into the selection and matches bare "Spread" as the type.
var betPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^(.+?)\s+(Money\s+Line|Point\s+Spread|Total\s+Points|Over|Under)\s+\$?(\d+(?:\.\d+)?)$`),
	regexp.MustCompile(`(?i)^(.+?)\s+(ML|SPREAD|OVER|UNDER|TOTAL)\s+\$?(\d+(?:\.\d+)?)$`),
}

// ParsedBet is the structured form of a free-text bet message.
type ParsedBet struct {
	Selection string
	BetType   string
	Stake     decimal.Decimal
}

// ParseBet extracts selection, bet type, and stake from a chat message.
// Returns ErrUnparsableBet when the message does not look like a bet at
// all; stake-bound violations are left to the engine.
func ParseBet(message string) (*ParsedBet, error) {
	message = strings.TrimSpace(message)

	for _, pattern := range betPatterns {
		match := pattern.FindStringSubmatch(message)
		if match == nil {
			continue
		}

		selection := strings.TrimSpace(match[1])
		betType := normalizeBetType(match[2])
		stake, err := decimal.NewFromString(match[3])
		if err != nil || !stake.IsPositive() {
			continue
		}

		if len(selection) < 2 {
			return nil, fmt.Errorf("%w: selection %q too short", ErrUnparsableBet, selection)
		}
		if !ValidBetType(betType) {
			return nil, fmt.Errorf("%w: unknown bet type %q", ErrUnparsableBet, betType)
		}

		return &ParsedBet{
			Selection: selection,
			BetType:   betType,
			Stake:     stake,
		}, nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnparsableBet, message)
}

func ValidBetType(betType string) bool {
	switch betType {
	case BetTypeMoneyline, BetTypeSpread, BetTypeOver, BetTypeUnder, BetTypeTotal:
		return true
	}
	return false
}

func normalizeBetType(raw string) string {
	collapsed := strings.ToUpper(strings.ReplaceAll(raw, " ", ""))
	switch collapsed {
	case "ML", "MONEYLINE":
		return BetTypeMoneyline
	case "SPREAD", "POINTSPREAD":
		return BetTypeSpread
	case "OVER", "O":
		return BetTypeOver
	case "UNDER", "U":
		return BetTypeUnder
	case "TOTAL", "TOTALPOINTS":
		return BetTypeTotal
	}
	return collapsed
}
