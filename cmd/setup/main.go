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

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"

	"bet-engine-go/internal/common"
	"bet-engine-go/internal/config"
	"bet-engine-go/internal/store"

	"go.uber.org/zap"
)

// setup prepares a fresh installation: creates the database schema,
// promotes the initial admin, and reports which currencies still need
// a receiving address before deposits can work.
func main() {
	adminUserId := flag.Int64("admin", 0, "User id to create and promote to admin")
	adminUsername := flag.String("admin-username", "admin", "Username for the initial admin")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		_, _ = zap.NewProduction()
		zap.L().Fatal("Failed to load configuration", zap.Error(err))
	}

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	ctx := context.Background()
	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	common.PrintHeader("BETTING ENGINE SETUP", common.DefaultWidth)
	fmt.Printf("Database ready at %s\n", cfg.Database.Path)

	if *adminUserId != 0 {
		if _, err := services.DbService.GetOrCreateUser(ctx, *adminUserId, *adminUsername, *adminUsername); err != nil {
			zap.L().Fatal("Failed to create admin user", zap.Error(err))
		}
		if err := services.DbService.SetAdmin(ctx, *adminUserId, true); err != nil {
			zap.L().Fatal("Failed to promote admin user", zap.Error(err))
		}
		fmt.Printf("Admin user %d (%s) ready\n", *adminUserId, *adminUsername)
	}

	fmt.Println("\nSupported currencies:")
	for i, cur := range services.Currencies {
		prefix := common.BoxPrefix(i == len(services.Currencies)-1)
		status := "missing receiving address (run: admin add-wallet " + cur.Symbol + " " + cur.Network + " <address>)"
		if _, err := services.DbService.GetAdminWallet(ctx, cur.Symbol); err == nil {
			status = "ready"
		} else if !errors.Is(err, store.ErrUnknownCurrency) {
			zap.L().Fatal("Failed to check receiving address", zap.String("currency", cur.Symbol), zap.Error(err))
		}
		fmt.Printf("%s%-6s %-10s %s\n", prefix, cur.Symbol, cur.Network, status)
	}

	common.PrintFooter("Setup complete", common.DefaultWidth)
}
