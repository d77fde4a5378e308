package relayer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/k0kubun/pp/v3"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/AvaProtocol/mizan-relayer/core/chainio/mizan"
	"github.com/AvaProtocol/mizan-relayer/core/chainio/tenderly"
	"github.com/AvaProtocol/mizan-relayer/core/profit"
	"github.com/AvaProtocol/mizan-relayer/pkg/logger"
)

type AnalyzeOption struct {
	// when set, unknown tokens are classified from their bytecode
	RpcUrl string

	// default to trace[0].to and trace[0].from
	Contract string
	Sender   string

	WrappedAssets []string
	ShowLedger    bool
	Decimals      int32
}

type AnalyzeReport struct {
	Run     string                `json:"run"`
	Status  bool                  `json:"status"`
	Method  string                `json:"method,omitempty"`
	Stats   profit.WalkStats      `json:"stats"`
	Profits []profit.ProfitRecord `json:"profits"`
}

// AnalyzeFile attributes profit for a saved simulation, without simulating or submitting anything.
func AnalyzeFile(ctx context.Context, path string, opt AnalyzeOption, out io.Writer) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	sim, err := tenderly.ParseSimulation(data)
	if err != nil {
		return err
	}
	if len(sim.Trace) == 0 || sim.Trace[0] == nil {
		return fmt.Errorf("%s has no trace", path)
	}

	runCtx := profit.RunContext{Contract: sim.Trace[0].To, Sender: sim.Trace[0].From}
	if opt.Contract != "" {
		runCtx.Contract = common.HexToAddress(opt.Contract)
	}
	if opt.Sender != "" {
		runCtx.Sender = common.HexToAddress(opt.Sender)
	}

	var reader profit.ContractCodeReader
	if opt.RpcUrl != "" {
		client, err := ethclient.DialContext(ctx, opt.RpcUrl)
		if err != nil {
			return fmt.Errorf("cannot dial %s: %w", opt.RpcUrl, err)
		}
		defer client.Close()
		reader = client
	}

	seeds := lo.FilterMap(opt.WrappedAssets, func(s string, _ int) (common.Address, bool) {
		return common.HexToAddress(s), common.IsHexAddress(s)
	})
	classifier := profit.NewWrappedAssetClassifier(reader, logger.NewNoOpLogger(), seeds...)
	engine := profit.NewEngine(classifier.Check(), logger.NewNoOpLogger(), nil)

	profits, analysis := engine.Analyze(ctx, runCtx, sim.Trace)

	// unknown entry points are reported without a method
	method, _ := mizan.StrategyMethod(sim.Trace[0].Input)

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(&AnalyzeReport{
		Run:     analysis.ID,
		Status:  sim.Status,
		Method:  method,
		Stats:   analysis.Stats(),
		Profits: profits,
	}); err != nil {
		return err
	}

	if opt.ShowLedger {
		printer := pp.New()
		printer.SetOutput(out)
		printer.SetColoringEnabled(false)
		_, err := printer.Println(humanLedger(analysis.Ledger(), opt.Decimals))
		return err
	}
	return nil
}

type ledgerLine struct {
	Ledger  string
	Asset   string
	Address string
	Amount  string
	Class   profit.BalanceClass
}

// humanLedger flattens both sheets, revenue first and each in walk order, with amounts scaled
// down by decimals.
func humanLedger(l *profit.LedgerAccumulator, decimals int32) []ledgerLine {
	var lines []ledgerLine
	for _, sheet := range []struct {
		name  string
		sheet *profit.BalanceSheet
	}{{"revenue", l.Revenue}, {"cost", l.Cost}} {
		for _, asset := range sheet.sheet.Assets() {
			for _, e := range sheet.sheet.Entries(asset) {
				lines = append(lines, ledgerLine{
					Ledger:  sheet.name,
					Asset:   profit.ToLowerHex(asset),
					Address: profit.ToLowerHex(e.Address),
					Amount:  decimal.NewFromBigInt(e.Balance.Amount, -decimals).String(),
					Class:   e.Balance.Class,
				})
			}
		}
	}
	return lines
}
