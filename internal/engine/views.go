/**
 * Copyright 2024-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"bet-engine-go/internal/assistant"
	"bet-engine-go/internal/betting"
	"bet-engine-go/internal/common"
	"bet-engine-go/internal/models"

	"go.uber.org/zap"
)

func textView(userId int64, text string, buttons [][]models.ButtonRef) models.View {
	return models.View{UserId: userId, Text: text, Buttons: buttons}
}

func menuView(user *models.User) models.View {
	return models.View{
		UserId:  user.Id,
		Text:    fmt.Sprintf("Hey %s! What would you like to do?", displayName(user)),
		Buttons: menuButtons(),
	}
}

func helpView(userId int64) models.View {
	return textView(userId,
		"You can bet directly by typing something like:\n\n"+
			"  Lakers ML $100\n  Celtics Money Line $50\n\n"+
			"Or use the buttons below.",
		menuButtons())
}

func errorView(userId int64) models.View {
	return textView(userId, "Something went wrong on our side. Try again in a moment.", menuButtons())
}

func expiredFlowView(userId int64) models.View {
	return textView(userId, "That conversation timed out. Start again from the menu.", menuButtons())
}

func rateLimitedView(userId int64, retryAfter time.Duration) models.View {
	return textView(userId,
		fmt.Sprintf("Slow down a little. Try again in about %d seconds.", int(retryAfter.Seconds())+1),
		nil)
}

func (d *Dispatcher) balanceView(ctx context.Context, user *models.User) models.View {
	balance, err := d.store.GetBalance(ctx, user.Id)
	if err != nil {
		zap.L().Error("Failed to read balance", zap.Int64("user_id", user.Id), zap.Error(err))
		return errorView(user.Id)
	}
	return textView(user.Id, fmt.Sprintf("Your balance: $%s", balance.StringFixed(2)), menuButtons())
}

func (d *Dispatcher) historyView(ctx context.Context, user *models.User) models.View {
	bets, err := d.store.ListUserBets(ctx, user.Id, 10)
	if err != nil {
		zap.L().Error("Failed to list bets", zap.Int64("user_id", user.Id), zap.Error(err))
		return errorView(user.Id)
	}
	if len(bets) == 0 {
		return textView(user.Id, "No bets yet. Try something like: Lakers ML $100", menuButtons())
	}

	var b strings.Builder
	b.WriteString("Your recent bets:\n")
	for _, bet := range bets {
		result := "lost"
		if bet.Outcome == models.OutcomeWin {
			result = fmt.Sprintf("won $%s", bet.Payout.StringFixed(2))
		}
		fmt.Fprintf(&b, "\n%s  %s %s  $%s @ %s — %s",
			bet.CreatedAt.Format("Jan 02 15:04"),
			bet.Selection, bet.BetType,
			bet.Stake.StringFixed(2), bet.Odds.String(), result)
	}
	return textView(user.Id, b.String(), menuButtons())
}

func (d *Dispatcher) statsView(ctx context.Context, user *models.User) models.View {
	stats, err := d.store.GetUserStats(ctx, user.Id)
	if err != nil {
		zap.L().Error("Failed to load stats", zap.Int64("user_id", user.Id), zap.Error(err))
		return errorView(user.Id)
	}
	if stats.TotalBets == 0 {
		return textView(user.Id, "No bets yet, so no stats to show.", menuButtons())
	}

	profit := stats.TotalPayout.Sub(stats.TotalWagered)
	return textView(user.Id, fmt.Sprintf(
		"Your stats:\n\nBets: %d\nWins: %d\nLosses: %d\nWagered: $%s\nPaid out: $%s\nNet: $%s",
		stats.TotalBets, stats.Wins, stats.Losses,
		stats.TotalWagered.StringFixed(2), stats.TotalPayout.StringFixed(2), profit.StringFixed(2)),
		menuButtons())
}

func (d *Dispatcher) leaderboardView(ctx context.Context, user *models.User) models.View {
	entries, err := d.store.GetLeaderboard(ctx, 10)
	if err != nil {
		zap.L().Error("Failed to load leaderboard", zap.Int64("user_id", user.Id), zap.Error(err))
		return errorView(user.Id)
	}
	if len(entries) == 0 {
		return textView(user.Id, "The leaderboard is empty. Be the first!", menuButtons())
	}

	var b strings.Builder
	b.WriteString("Top bettors by profit:\n")
	for i, entry := range entries {
		fmt.Fprintf(&b, "\n%d. %s — $%s over %d bets", i+1, entry.DisplayName, entry.Profit.StringFixed(2), entry.TotalBets)
	}
	return textView(user.Id, b.String(), menuButtons())
}

func oddsBoardView(userId int64, odds *betting.OddsService) models.View {
	var b strings.Builder
	b.WriteString("Today's moneyline board:\n")
	for _, team := range odds.PopularTeams() {
		quote := odds.Quote(team, betting.BetTypeMoneyline)
		fmt.Fprintf(&b, "\n%-20s %s", team, quote.Odds.String())
	}
	b.WriteString("\n\nBet with: <team> ML $<stake>")
	return textView(userId, b.String(), menuButtons())
}

func betResultView(userId int64, bet *models.Bet) models.View {
	var text string
	if bet.Outcome == models.OutcomeWin {
		text = fmt.Sprintf("WINNER! %s %s at %s pays $%s on your $%s stake.",
			bet.Selection, bet.BetType, bet.Odds.String(),
			bet.Payout.StringFixed(2), bet.Stake.StringFixed(2))
	} else {
		text = fmt.Sprintf("%s %s didn't come through. You lost $%s. Better luck next time.",
			bet.Selection, bet.BetType, bet.Stake.StringFixed(2))
	}
	return textView(userId, text, menuButtons())
}

func voiceMenuView(user *models.User) models.View {
	var rows [][]models.ButtonRef
	for _, name := range assistant.AvailableVoices() {
		rows = append(rows, []models.ButtonRef{{Label: name, Data: btnVoicePrefix + ":" + name}})
	}
	current := user.PreferredVoice
	if current == "" {
		current = "the default voice"
	}
	return models.View{
		UserId:  user.Id,
		Text:    fmt.Sprintf("Bet results are announced in %s. Pick a new voice:", current),
		Buttons: rows,
	}
}

func menuButtons() [][]models.ButtonRef {
	return [][]models.ButtonRef{
		{
			{Label: "Place Bet", Data: btnBet},
			{Label: "Live Odds", Data: btnOdds},
		},
		{
			{Label: "Deposit", Data: btnDeposit},
			{Label: "Withdraw", Data: btnWithdraw},
		},
		{
			{Label: "Balance", Data: btnBalance},
			{Label: "History", Data: btnHistory},
		},
		{
			{Label: "My Stats", Data: btnStats},
			{Label: "Leaderboard", Data: btnLeaderboard},
		},
		{
			{Label: "Voice", Data: btnVoice},
		},
	}
}

func cancelButtons() [][]models.ButtonRef {
	return [][]models.ButtonRef{{{Label: "Cancel", Data: btnCancel}}}
}

func confirmButtons() [][]models.ButtonRef {
	return [][]models.ButtonRef{{
		{Label: "Confirm", Data: btnConfirm},
		{Label: "Cancel", Data: btnCancel},
	}}
}

func currencyButtons(currencies []common.CurrencyConfig) [][]models.ButtonRef {
	row := make([]models.ButtonRef, 0, len(currencies))
	for _, cur := range currencies {
		row = append(row, models.ButtonRef{Label: cur.Symbol, Data: btnCurrencyPrefix + ":" + cur.Symbol})
	}
	return [][]models.ButtonRef{row, {{Label: "Cancel", Data: btnCancel}}}
}

func betTypeButtons() [][]models.ButtonRef {
	return [][]models.ButtonRef{
		{
			{Label: "Moneyline", Data: btnBetTypePrefix + ":" + betting.BetTypeMoneyline},
			{Label: "Spread", Data: btnBetTypePrefix + ":" + betting.BetTypeSpread},
		},
		{
			{Label: "Over", Data: btnBetTypePrefix + ":" + betting.BetTypeOver},
			{Label: "Under", Data: btnBetTypePrefix + ":" + betting.BetTypeUnder},
		},
		{{Label: "Cancel", Data: btnCancel}},
	}
}

func displayName(user *models.User) string {
	if user.DisplayName != "" {
		return user.DisplayName
	}
	if user.Username != "" {
		return user.Username
	}
	return "there"
}
