package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"bet-engine-go/internal/assistant"
	"bet-engine-go/internal/betting"
	"bet-engine-go/internal/common"
	"bet-engine-go/internal/models"
	"bet-engine-go/internal/monitoring"
	"bet-engine-go/internal/session"
	"bet-engine-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Button data is resolved here, once, into flow transitions. Handlers
// downstream never re-parse strings.
const (
	btnMenu        = "menu"
	btnBalance     = "balance"
	btnHistory     = "history"
	btnStats       = "stats"
	btnLeaderboard = "leaderboard"
	btnOdds        = "odds"
	btnDeposit     = "deposit"
	btnWithdraw    = "withdraw"
	btnBet         = "bet"
	btnVoice       = "voice"
	btnConfirm     = "confirm"
	btnCancel      = "cancel"

	btnCurrencyPrefix = "currency" // currency:USDT
	btnBetTypePrefix  = "bettype"  // bettype:ML
	btnVoicePrefix    = "voice"    // voice:Taylor Swift
)

func (d *Dispatcher) handleButton(ctx context.Context, user *models.User, action models.UserAction) models.View {
	verb, arg := splitButton(action.Button)

	switch verb {
	case btnMenu:
		return menuView(user)
	case btnBalance:
		return d.balanceView(ctx, user)
	case btnHistory:
		return d.historyView(ctx, user)
	case btnStats:
		return d.statsView(ctx, user)
	case btnLeaderboard:
		return d.leaderboardView(ctx, user)
	case btnOdds:
		return oddsBoardView(user.Id, d.odds)
	case btnDeposit:
		return d.startDeposit(user)
	case btnWithdraw:
		return d.startWithdrawal(user)
	case btnBet:
		return d.startBetFlow(user)
	case btnVoice:
		if arg == "" {
			return voiceMenuView(user)
		}
		return d.setVoice(ctx, user, arg)
	case btnCurrencyPrefix:
		return d.selectCurrency(ctx, user, arg)
	case btnBetTypePrefix:
		return d.selectBetType(user, arg)
	case btnConfirm:
		return d.confirmFlow(ctx, user)
	case btnCancel:
		if _, ok := d.sessions.Cancel(user.Id); ok {
			return textView(user.Id, "Cancelled. What next?", menuButtons())
		}
		return menuView(user)
	default:
		zap.L().Warn("Unknown button", zap.String("button", action.Button), zap.Int64("user_id", user.Id))
		return menuView(user)
	}
}

func (d *Dispatcher) handleText(ctx context.Context, user *models.User, action models.UserAction) models.View {
	text := strings.TrimSpace(action.Text)
	if text == "" {
		return models.View{}
	}

	if flow, ok := d.sessions.Active(user.Id); ok {
		return d.advanceFlow(ctx, user, flow, text)
	}

	// No flow in progress: a well-formed bet message settles in one shot.
	if parsed, err := betting.ParseBet(text); err == nil {
		return d.settleBet(ctx, user, parsed.Selection, parsed.BetType, parsed.Stake)
	}

	return d.askAssistant(ctx, user, text)
}

func (d *Dispatcher) handlePhoto(ctx context.Context, user *models.User, action models.UserAction) models.View {
	flow, ok := d.sessions.Active(user.Id)
	if !ok || flow.Kind != session.FlowDeposit || flow.Step != session.StepAwaitProof {
		return textView(user.Id, "I wasn't expecting a photo. Start a deposit first if this is a payment proof.", menuButtons())
	}

	if _, err := d.sessions.Advance(user.Id, session.StepAwaitAmount, map[string]string{"proof_ref": action.PhotoRef}); err != nil {
		return expiredFlowView(user.Id)
	}

	cur, _ := common.FindCurrency(d.currencies, flow.Data["currency"])
	minDeposit := "the minimum"
	if cur != nil {
		minDeposit = fmt.Sprintf("%s %s", cur.MinDeposit, cur.Symbol)
	}
	return textView(user.Id, fmt.Sprintf("Proof received. How much did you send? (at least %s)", minDeposit), cancelButtons())
}

// --- Flow starts ---

func (d *Dispatcher) startDeposit(user *models.User) models.View {
	_, abandoned := d.sessions.Begin(user.Id, session.FlowDeposit, session.StepSelectCurrency)
	prefix := abandonedPrefix(abandoned)
	return models.View{
		UserId:  user.Id,
		Text:    prefix + "Which currency are you depositing?",
		Buttons: currencyButtons(d.currencies),
	}
}

func (d *Dispatcher) startWithdrawal(user *models.User) models.View {
	_, abandoned := d.sessions.Begin(user.Id, session.FlowWithdrawal, session.StepSelectCurrency)
	prefix := abandonedPrefix(abandoned)
	return models.View{
		UserId:  user.Id,
		Text:    prefix + "Which currency do you want to withdraw?",
		Buttons: currencyButtons(d.currencies),
	}
}

func (d *Dispatcher) startBetFlow(user *models.User) models.View {
	_, abandoned := d.sessions.Begin(user.Id, session.FlowBet, session.StepSelectBetType)
	prefix := abandonedPrefix(abandoned)
	return models.View{
		UserId:  user.Id,
		Text:    prefix + "What kind of bet?",
		Buttons: betTypeButtons(),
	}
}

// --- Button-driven transitions ---

func (d *Dispatcher) selectCurrency(ctx context.Context, user *models.User, symbol string) models.View {
	flow, ok := d.sessions.Active(user.Id)
	if !ok || flow.Step != session.StepSelectCurrency {
		return textView(user.Id, "Pick Deposit or Withdraw first.", menuButtons())
	}

	cur, found := common.FindCurrency(d.currencies, symbol)
	if !found {
		return textView(user.Id, fmt.Sprintf("%s is not supported.", symbol), currencyButtons(d.currencies))
	}

	switch flow.Kind {
	case session.FlowDeposit:
		wallet, err := d.store.GetAdminWallet(ctx, cur.Symbol)
		if err != nil {
			if errors.Is(err, store.ErrUnknownCurrency) {
				d.sessions.Cancel(user.Id)
				return textView(user.Id, fmt.Sprintf("No receiving address is configured for %s yet. Try another currency.", cur.Symbol), menuButtons())
			}
			zap.L().Error("Failed to load admin wallet", zap.String("currency", cur.Symbol), zap.Error(err))
			return errorView(user.Id)
		}
		if _, err := d.sessions.Advance(user.Id, session.StepAwaitProof, map[string]string{"currency": cur.Symbol}); err != nil {
			return expiredFlowView(user.Id)
		}
		return textView(user.Id, fmt.Sprintf(
			"Send %s (%s network) to:\n\n%s\n\nMinimum deposit: %s %s.\nThen send a photo of your payment proof.",
			cur.Symbol, wallet.Network, wallet.Address, cur.MinDeposit, cur.Symbol), cancelButtons())

	case session.FlowWithdrawal:
		data := map[string]string{"currency": cur.Symbol}
		if saved := savedWalletAddress(ctx, d.store, user.Id, cur.Symbol); saved != "" {
			data["address"] = saved
			if _, err := d.sessions.Advance(user.Id, session.StepAwaitAmount, data); err != nil {
				return expiredFlowView(user.Id)
			}
			return textView(user.Id, fmt.Sprintf(
				"Withdrawing %s to your saved address:\n%s\n\nHow much? (minimum %s %s)",
				cur.Symbol, saved, cur.MinWithdraw, cur.Symbol), cancelButtons())
		}
		if _, err := d.sessions.Advance(user.Id, session.StepAwaitAddress, data); err != nil {
			return expiredFlowView(user.Id)
		}
		return textView(user.Id, fmt.Sprintf("What is your %s (%s network) address?", cur.Symbol, cur.Network), cancelButtons())

	default:
		return menuView(user)
	}
}

func (d *Dispatcher) selectBetType(user *models.User, betType string) models.View {
	flow, ok := d.sessions.Active(user.Id)
	if !ok || flow.Kind != session.FlowBet || flow.Step != session.StepSelectBetType {
		return textView(user.Id, "Start a bet first.", menuButtons())
	}
	if !betting.ValidBetType(betType) {
		return textView(user.Id, "Pick one of the offered bet types.", betTypeButtons())
	}
	if _, err := d.sessions.Advance(user.Id, session.StepAwaitSelection, map[string]string{"bet_type": betType}); err != nil {
		return expiredFlowView(user.Id)
	}
	return textView(user.Id, "Which team or selection?", cancelButtons())
}

// --- Text-driven transitions ---

func (d *Dispatcher) advanceFlow(ctx context.Context, user *models.User, flow *session.Flow, text string) models.View {
	switch {
	case flow.Kind == session.FlowDeposit && flow.Step == session.StepAwaitAmount:
		return d.depositAmount(user, flow, text)
	case flow.Kind == session.FlowWithdrawal && flow.Step == session.StepAwaitAddress:
		return d.withdrawalAddress(user, text)
	case flow.Kind == session.FlowWithdrawal && flow.Step == session.StepAwaitAmount:
		return d.withdrawalAmount(ctx, user, flow, text)
	case flow.Kind == session.FlowBet && flow.Step == session.StepAwaitSelection:
		return d.betSelection(user, flow, text)
	case flow.Kind == session.FlowBet && flow.Step == session.StepAwaitStake:
		return d.betStake(ctx, user, flow, text)
	default:
		return textView(user.Id, "Use the buttons above to continue, or Cancel to start over.", cancelButtons())
	}
}

func (d *Dispatcher) depositAmount(user *models.User, flow *session.Flow, text string) models.View {
	amount, err := decimal.NewFromString(strings.TrimPrefix(text, "$"))
	if err != nil || !amount.IsPositive() {
		return textView(user.Id, "That doesn't look like an amount. Send a number like 50.", cancelButtons())
	}

	cur, _ := common.FindCurrency(d.currencies, flow.Data["currency"])
	if cur != nil {
		if min, err := decimal.NewFromString(cur.MinDeposit); err == nil && amount.LessThan(min) {
			return textView(user.Id, fmt.Sprintf("Minimum deposit is %s %s.", cur.MinDeposit, cur.Symbol), cancelButtons())
		}
	}

	if _, err := d.sessions.Advance(user.Id, session.StepConfirm, map[string]string{"amount": amount.String()}); err != nil {
		return expiredFlowView(user.Id)
	}
	return models.View{
		UserId:  user.Id,
		Text:    fmt.Sprintf("Submit a deposit of %s %s for admin review?", amount.String(), flow.Data["currency"]),
		Buttons: confirmButtons(),
	}
}

func (d *Dispatcher) withdrawalAddress(user *models.User, text string) models.View {
	address := strings.TrimSpace(text)
	if len(address) < 8 || strings.ContainsAny(address, " \t\n") {
		return textView(user.Id, "That doesn't look like a valid address. Send it again.", cancelButtons())
	}
	flow, err := d.sessions.Advance(user.Id, session.StepAwaitAmount, map[string]string{"address": address})
	if err != nil {
		return expiredFlowView(user.Id)
	}

	cur, _ := common.FindCurrency(d.currencies, flow.Data["currency"])
	minLine := ""
	if cur != nil {
		minLine = fmt.Sprintf(" (minimum %s %s)", cur.MinWithdraw, cur.Symbol)
	}
	return textView(user.Id, "How much do you want to withdraw?"+minLine, cancelButtons())
}

func (d *Dispatcher) withdrawalAmount(ctx context.Context, user *models.User, flow *session.Flow, text string) models.View {
	amount, err := decimal.NewFromString(strings.TrimPrefix(text, "$"))
	if err != nil || !amount.IsPositive() {
		return textView(user.Id, "That doesn't look like an amount. Send a number like 50.", cancelButtons())
	}

	cur, _ := common.FindCurrency(d.currencies, flow.Data["currency"])
	if cur != nil {
		if min, err := decimal.NewFromString(cur.MinWithdraw); err == nil && amount.LessThan(min) {
			return textView(user.Id, fmt.Sprintf("Minimum withdrawal is %s %s.", cur.MinWithdraw, cur.Symbol), cancelButtons())
		}
	}

	balance, err := d.store.GetBalance(ctx, user.Id)
	if err != nil {
		zap.L().Error("Failed to read balance", zap.Int64("user_id", user.Id), zap.Error(err))
		return errorView(user.Id)
	}
	if amount.GreaterThan(balance) {
		return textView(user.Id, fmt.Sprintf("Your balance is %s. Pick a smaller amount.", balance.String()), cancelButtons())
	}

	if _, err := d.sessions.Advance(user.Id, session.StepConfirm, map[string]string{"amount": amount.String()}); err != nil {
		return expiredFlowView(user.Id)
	}
	return models.View{
		UserId: user.Id,
		Text: fmt.Sprintf("Withdraw %s %s to %s?\nAn admin reviews every withdrawal before funds move.",
			amount.String(), flow.Data["currency"], flow.Data["address"]),
		Buttons: confirmButtons(),
	}
}

func (d *Dispatcher) betSelection(user *models.User, flow *session.Flow, text string) models.View {
	selection := strings.TrimSpace(text)
	if selection == "" {
		return textView(user.Id, "Which team or selection?", cancelButtons())
	}
	if _, err := d.sessions.Advance(user.Id, session.StepAwaitStake, map[string]string{"selection": selection}); err != nil {
		return expiredFlowView(user.Id)
	}

	quote := d.odds.Quote(selection, flow.Data["bet_type"])
	return textView(user.Id, fmt.Sprintf(
		"%s %s is priced at %s.\nHow much do you want to stake? (%s to %s)",
		selection, flow.Data["bet_type"], quote.Odds.String(),
		d.bettingCfg.MinStake, d.bettingCfg.MaxStake), cancelButtons())
}

func (d *Dispatcher) betStake(ctx context.Context, user *models.User, flow *session.Flow, text string) models.View {
	stake, err := decimal.NewFromString(strings.TrimPrefix(text, "$"))
	if err != nil {
		return textView(user.Id, "That doesn't look like a stake. Send a number like 100.", cancelButtons())
	}
	d.sessions.Cancel(user.Id)
	return d.settleBet(ctx, user, flow.Data["selection"], flow.Data["bet_type"], stake)
}

// --- Confirmation ---

func (d *Dispatcher) confirmFlow(ctx context.Context, user *models.User) models.View {
	flow, ok := d.sessions.Active(user.Id)
	if !ok || flow.Step != session.StepConfirm {
		return textView(user.Id, "Nothing to confirm.", menuButtons())
	}
	d.sessions.Cancel(user.Id)

	amount, err := decimal.NewFromString(flow.Data["amount"])
	if err != nil {
		zap.L().Error("Corrupt flow amount", zap.String("amount", flow.Data["amount"]), zap.Int64("user_id", user.Id))
		return errorView(user.Id)
	}

	switch flow.Kind {
	case session.FlowDeposit:
		request, err := d.store.CreatePaymentRequest(ctx, store.PaymentRequestParams{
			UserId:   user.Id,
			Kind:     models.RequestDeposit,
			Currency: flow.Data["currency"],
			Amount:   amount,
			ProofRef: flow.Data["proof_ref"],
		})
		if err != nil {
			zap.L().Error("Failed to create deposit request", zap.Int64("user_id", user.Id), zap.Error(err))
			return errorView(user.Id)
		}
		monitoring.PaymentRequestsCreated.WithLabelValues(string(models.RequestDeposit)).Inc()
		return textView(user.Id, fmt.Sprintf(
			"Deposit request #%d submitted for admin review. Your balance updates once it is approved.", request.Id), menuButtons())

	case session.FlowWithdrawal:
		currency := flow.Data["currency"]
		address := flow.Data["address"]
		request, err := d.store.CreatePaymentRequest(ctx, store.PaymentRequestParams{
			UserId:   user.Id,
			Kind:     models.RequestWithdrawal,
			Currency: currency,
			Amount:   amount,
			Address:  address,
		})
		if err != nil {
			if errors.Is(err, store.ErrInsufficientFunds) {
				return textView(user.Id, "Your balance dropped below that amount. Start the withdrawal again.", menuButtons())
			}
			zap.L().Error("Failed to create withdrawal request", zap.Int64("user_id", user.Id), zap.Error(err))
			return errorView(user.Id)
		}
		if err := d.store.SaveUserWallet(ctx, user.Id, currency, address); err != nil {
			zap.L().Warn("Failed to save user wallet", zap.Int64("user_id", user.Id), zap.Error(err))
		}
		monitoring.PaymentRequestsCreated.WithLabelValues(string(models.RequestWithdrawal)).Inc()
		return textView(user.Id, fmt.Sprintf(
			"Withdrawal request #%d submitted for admin review. Funds stay in your balance until it is approved.", request.Id), menuButtons())

	default:
		return menuView(user)
	}
}

// --- Settlement ---

// settleBet places and settles a bet, then decorates the result with a
// voice line. The decoration runs after the ledger transaction has
// committed; a failed decoration degrades to a text-only reply.
func (d *Dispatcher) settleBet(ctx context.Context, user *models.User, selection, betType string, stake decimal.Decimal) models.View {
	bet, err := d.bets.Place(ctx, user.Id, selection, betType, stake)
	if err != nil {
		switch {
		case errors.Is(err, betting.ErrInvalidStake):
			return textView(user.Id, fmt.Sprintf("Stakes must be between %s and %s.", d.bettingCfg.MinStake, d.bettingCfg.MaxStake), menuButtons())
		case errors.Is(err, store.ErrInsufficientFunds):
			return textView(user.Id, "You don't have enough balance for that stake.", menuButtons())
		default:
			zap.L().Error("Failed to settle bet", zap.Int64("user_id", user.Id), zap.Error(err))
			return errorView(user.Id)
		}
	}
	monitoring.BetsSettled.WithLabelValues(string(bet.Outcome)).Inc()

	view := betResultView(user.Id, bet)
	if d.assistant != nil {
		line := assistant.FormatBetVoiceLine(bet)
		if audio := d.assistant.Speak(ctx, line, user.PreferredVoice); audio != nil {
			view.VoiceAudio = audio
		}
	}
	return view
}

// --- Assistant fallback ---

func (d *Dispatcher) askAssistant(ctx context.Context, user *models.User, text string) models.View {
	if d.assistant != nil {
		reply := d.assistant.Ask(ctx, assistantSystemPrompt, text)
		if reply != "" {
			return textView(user.Id, reply, menuButtons())
		}
	}
	return helpView(user.Id)
}

const assistantSystemPrompt = "You are a concise assistant for a simulated sports betting service. " +
	"All balances are play money. Explain bet formats like 'Lakers ML $100' and point users at the menu buttons. " +
	"Never give financial advice."

// --- helpers ---

func splitButton(data string) (verb, arg string) {
	parts := strings.SplitN(data, ":", 2)
	if len(parts) == 2 {
		return parts[0], parts[1]
	}
	return parts[0], ""
}

func savedWalletAddress(ctx context.Context, st store.Store, userId int64, currency string) string {
	wallets, err := st.ListUserWallets(ctx, userId)
	if err != nil {
		zap.L().Warn("Failed to list user wallets", zap.Int64("user_id", userId), zap.Error(err))
		return ""
	}
	for _, w := range wallets {
		if strings.EqualFold(w.Currency, currency) {
			return w.Address
		}
	}
	return ""
}

func (d *Dispatcher) setVoice(ctx context.Context, user *models.User, name string) models.View {
	if !assistant.ValidVoice(name) {
		return voiceMenuView(user)
	}
	if err := d.store.SetPreferredVoice(ctx, user.Id, name); err != nil {
		zap.L().Error("Failed to set voice", zap.Int64("user_id", user.Id), zap.Error(err))
		return errorView(user.Id)
	}
	return textView(user.Id, fmt.Sprintf("Bet results will be announced in the %s voice.", name), menuButtons())
}

func abandonedPrefix(abandoned *session.Flow) string {
	if abandoned == nil {
		return ""
	}
	return fmt.Sprintf("Your unfinished %s was discarded.\n\n", abandoned.Kind)
}
