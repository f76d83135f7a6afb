package betting

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Quote is a priced bet offer.
type Quote struct {
	Selection string
	BetType   string
	Odds      decimal.Decimal
	// PayoutMultiplier is odds - 1: the profit per unit staked.
	PayoutMultiplier decimal.Decimal
}

// Team tiers used to simulate realistic moneyline prices. Quotes are
// deterministic: the same selection always prices the same so a user
// sees consistent odds between the quote and the slip.
var strongTeams = []string{
	"real madrid", "barcelona", "manchester city", "liverpool", "bayern",
	"lakers", "warriors", "celtics", "heat", "bucks",
}

var weakTeams = []string{
	"tottenham", "arsenal", "chelsea", "manchester united", "psg",
	"knicks", "pistons", "magic", "hornets", "wizards",
}

// popularTeams is the menu shown on the live-odds view.
var popularTeams = []string{
	"Real Madrid", "Barcelona", "Manchester City", "Liverpool", "Bayern Munich",
	"Lakers", "Warriors", "Celtics", "Heat", "Bucks",
	"PSG", "Chelsea", "Arsenal", "Tottenham", "Manchester United",
}

// OddsService prices bets from simulated team strength.
type OddsService struct {
	houseEdge float64
}

func NewOddsService(houseEdge float64) *OddsService {
	return &OddsService{houseEdge: houseEdge}
}

// Quote prices a selection. The returned odds reflect the team's tier
// and the house edge; they do NOT drive settlement, which uses a fixed
// win probability regardless of price.
func (o *OddsService) Quote(selection, betType string) Quote {
	probability := baseProbability(selection, betType) * (1 - o.houseEdge)

	var odds float64
	if probability > 0 {
		odds = 1 / probability
	} else {
		odds = 10.0
	}
	odds = roundOdds(odds)

	oddsDec := decimal.NewFromFloat(odds)
	return Quote{
		Selection:        selection,
		BetType:          betType,
		Odds:             oddsDec,
		PayoutMultiplier: oddsDec.Sub(decimal.NewFromInt(1)),
	}
}

// PopularTeams returns the selections offered on the odds menu.
func (o *OddsService) PopularTeams() []string {
	teams := make([]string, len(popularTeams))
	copy(teams, popularTeams)
	return teams
}

func baseProbability(selection, betType string) float64 {
	if betType != BetTypeMoneyline {
		// Spreads and totals price as coin flips
		return 0.50
	}

	switch teamStrength(selection) {
	case tierStrong:
		return 0.65
	case tierWeak:
		return 0.35
	default:
		return 0.50
	}
}

type strengthTier int

const (
	tierAverage strengthTier = iota
	tierStrong
	tierWeak
)

func teamStrength(selection string) strengthTier {
	lower := strings.ToLower(selection)
	for _, strong := range strongTeams {
		if strings.Contains(lower, strong) {
			return tierStrong
		}
	}
	for _, weak := range weakTeams {
		if strings.Contains(lower, weak) {
			return tierWeak
		}
	}
	return tierAverage
}

// roundOdds clamps and rounds prices to bookmaker-looking values.
func roundOdds(odds float64) float64 {
	switch {
	case odds < 1.1:
		return 1.1
	case odds < 2.0:
		return math.Round(odds*10) / 10
	case odds < 10.0:
		return math.Round(odds*100) / 100
	default:
		return math.Round(odds*10) / 10
	}
}
