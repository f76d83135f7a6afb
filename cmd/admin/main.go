package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"

	"bet-engine-go/internal/common"
	"bet-engine-go/internal/config"
	"bet-engine-go/internal/database"
	"bet-engine-go/internal/models"
	"bet-engine-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const usage = `Usage: admin <command> [args]

Commands:
  pending                         List payment requests awaiting review
  approve <request-id> [note]     Approve a request (credits or debits the user)
  reject <request-id> [note]      Reject a request (no balance change)
  adjust <user-id> <amount> [ref] Manually credit (or debit with -amount) a user
  users                           List all users with balances
  stats                           Show system-wide totals
  wallets                         List receiving addresses shown to depositors
  add-wallet <sym> <net> <addr>   Add or replace a receiving address
  remove-wallet <sym> <net>       Remove a receiving address
  promote <user-id>               Grant admin to a user
  demote <user-id>                Revoke admin from a user
`

func main() {
	flag.Parse()
	args := flag.Args()
	if len(args) == 0 {
		fmt.Print(usage)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	ctx := context.Background()
	service, err := common.InitializeDatabaseOnly(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to open database", zap.Error(err))
	}
	defer service.Close()

	if err := run(ctx, service, args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, service *database.Service, args []string) error {
	command, rest := args[0], args[1:]
	switch command {
	case "pending":
		return listPending(ctx, service)
	case "approve":
		return decide(ctx, service, rest, true)
	case "reject":
		return decide(ctx, service, rest, false)
	case "adjust":
		return adjust(ctx, service, rest)
	case "users":
		return listUsers(ctx, service)
	case "stats":
		return showStats(ctx, service)
	case "wallets":
		return listWallets(ctx, service)
	case "add-wallet":
		if len(rest) != 3 {
			return errors.New("usage: add-wallet <symbol> <network> <address>")
		}
		if err := service.AddAdminWallet(ctx, rest[0], rest[1], rest[2]); err != nil {
			return err
		}
		fmt.Printf("Receiving address for %s (%s) saved\n", rest[0], rest[1])
		return nil
	case "remove-wallet":
		if len(rest) != 2 {
			return errors.New("usage: remove-wallet <symbol> <network>")
		}
		if err := service.RemoveAdminWallet(ctx, rest[0], rest[1]); err != nil {
			return err
		}
		fmt.Printf("Receiving address for %s (%s) removed\n", rest[0], rest[1])
		return nil
	case "promote", "demote":
		if len(rest) != 1 {
			return fmt.Errorf("usage: %s <user-id>", command)
		}
		userId, err := strconv.ParseInt(rest[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid user id %q: %w", rest[0], err)
		}
		if err := service.SetAdmin(ctx, userId, command == "promote"); err != nil {
			return err
		}
		fmt.Printf("User %d %sd\n", userId, command)
		return nil
	default:
		fmt.Print(usage)
		return fmt.Errorf("unknown command %q", command)
	}
}

func listPending(ctx context.Context, service *database.Service) error {
	requests, err := service.ListPendingRequests(ctx)
	if err != nil {
		return fmt.Errorf("failed to list pending requests: %w", err)
	}

	common.PrintHeader("PENDING PAYMENT REQUESTS", common.DefaultWidth)
	if len(requests) == 0 {
		fmt.Println("No requests waiting for review.")
		return nil
	}

	for i, request := range requests {
		prefix := common.BoxPrefix(i == len(requests)-1)
		detail := common.BoxDetailPrefix(i == len(requests)-1)
		fmt.Printf("%s#%d  %s  %s %s  user=%d\n",
			prefix, request.Id, request.Kind, request.Amount.StringFixed(2), request.Currency, request.UserId)
		if request.Address != "" {
			fmt.Printf("%s   to: %s\n", detail, request.Address)
		}
		if request.ProofRef != "" {
			fmt.Printf("%s   proof: %s\n", detail, request.ProofRef)
		}
		fmt.Printf("%s   created: %s\n", detail, request.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	common.PrintFooter(fmt.Sprintf("Total: %d request(s)", len(requests)), common.DefaultWidth)
	return nil
}

func decide(ctx context.Context, service *database.Service, rest []string, approve bool) error {
	if len(rest) == 0 {
		return errors.New("request id required")
	}
	requestId, err := strconv.ParseInt(rest[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid request id %q: %w", rest[0], err)
	}
	note := ""
	if len(rest) > 1 {
		note = rest[1]
	}

	params := store.DecideParams{RequestId: requestId, AdminId: adminId(), Note: note}
	request, err := func() (*models.PaymentRequest, error) {
		if approve {
			return service.ApproveRequest(ctx, params)
		}
		return service.RejectRequest(ctx, params)
	}()

	switch {
	case err == nil:
		fmt.Printf("Request #%d %s (user %d, %s %s %s)\n",
			request.Id, request.Status, request.UserId, request.Kind, request.Amount.StringFixed(2), request.Currency)
		return nil
	case errors.Is(err, store.ErrAlreadyProcessed):
		if request != nil {
			return fmt.Errorf("request #%d was already %s", request.Id, request.Status)
		}
		return fmt.Errorf("request #%d was already processed", requestId)
	case errors.Is(err, store.ErrInsufficientFunds):
		fmt.Printf("Request #%d auto-rejected: the user no longer has the funds\n", requestId)
		return nil
	case errors.Is(err, store.ErrNotFound):
		return fmt.Errorf("no request with id %d", requestId)
	default:
		return fmt.Errorf("decision failed: %w", err)
	}
}

// adminId attributes CLI decisions in the audit trail. Defaults to 0
// (the system operator) when ADMIN_USER_ID is unset.
func adminId() int64 {
	raw := os.Getenv("ADMIN_USER_ID")
	if raw == "" {
		return 0
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0
	}
	return id
}

func adjust(ctx context.Context, service *database.Service, rest []string) error {
	if len(rest) < 2 {
		return errors.New("usage: adjust <user-id> <amount> [reference]")
	}
	userId, err := strconv.ParseInt(rest[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid user id %q: %w", rest[0], err)
	}
	amount, err := decimal.NewFromString(rest[1])
	if err != nil {
		return fmt.Errorf("invalid amount %q: %w", rest[1], err)
	}
	reference := "manual adjustment"
	if len(rest) > 2 {
		reference = rest[2]
	}

	entry, err := service.Adjust(ctx, store.AdjustParams{
		UserId:    userId,
		Amount:    amount,
		Kind:      "admin_adjust",
		Reference: reference,
	})
	if err != nil {
		return fmt.Errorf("adjustment failed: %w", err)
	}
	fmt.Printf("User %d: %s -> %s\n", userId, entry.BalanceBefore.StringFixed(2), entry.BalanceAfter.StringFixed(2))
	return nil
}

func listUsers(ctx context.Context, service *database.Service) error {
	users, err := service.ListUsers(ctx)
	if err != nil {
		return fmt.Errorf("failed to list users: %w", err)
	}

	common.PrintHeader("USERS", common.DefaultWidth)
	for i, user := range users {
		prefix := common.BoxPrefix(i == len(users)-1)
		role := ""
		if user.IsAdmin {
			role = "  [admin]"
		}
		fmt.Printf("%s%d  %-20s  $%s%s\n", prefix, user.Id, user.Username, user.Balance.StringFixed(2), role)
	}
	common.PrintFooter(fmt.Sprintf("Total: %d user(s)", len(users)), common.DefaultWidth)
	return nil
}

func showStats(ctx context.Context, service *database.Service) error {
	stats, err := service.GetSystemStats(ctx)
	if err != nil {
		return fmt.Errorf("failed to load system stats: %w", err)
	}

	common.PrintHeader("SYSTEM STATS", common.DefaultWidth)
	fmt.Printf("Users:            %d\n", stats.TotalUsers)
	fmt.Printf("Bets settled:     %d\n", stats.TotalBets)
	fmt.Printf("Total wagered:    $%s\n", stats.TotalWagered.StringFixed(2))
	fmt.Printf("Total paid out:   $%s\n", stats.TotalPayout.StringFixed(2))
	fmt.Printf("House net:        $%s\n", stats.TotalWagered.Sub(stats.TotalPayout).StringFixed(2))
	fmt.Printf("Pending requests: %d\n", stats.PendingRequests)
	return nil
}

func listWallets(ctx context.Context, service *database.Service) error {
	wallets, err := service.ListAdminWallets(ctx)
	if err != nil {
		return fmt.Errorf("failed to list wallets: %w", err)
	}

	common.PrintHeader("RECEIVING ADDRESSES", common.DefaultWidth)
	if len(wallets) == 0 {
		fmt.Println("No receiving addresses configured. Depositors cannot be shown an address.")
		return nil
	}
	for i, wallet := range wallets {
		prefix := common.BoxPrefix(i == len(wallets)-1)
		fmt.Printf("%s%-6s %-10s %s\n", prefix, wallet.Currency, wallet.Network, wallet.Address)
	}
	return nil
}
