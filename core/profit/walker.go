package profit

import (
	"context"
	"fmt"

	sdklogging "github.com/Layr-Labs/eigensdk-go/logging"

	"github.com/AvaProtocol/mizan-relayer/pkg/logger"
)

type WalkStats struct {
	Frames    int
	Transfers int
	Failures  int
}

// TraceWalker visits a call forest depth-first in document order and books every transfer it
// decodes. A frame that fails is logged and skipped; its children and siblings are still walked.
type TraceWalker struct {
	decoder *TransferDecoder
	ledger  *LedgerAccumulator
	logger  sdklogging.Logger
	metrics Metrics

	stats WalkStats
}

func NewTraceWalker(decoder *TransferDecoder, ledger *LedgerAccumulator, log sdklogging.Logger, m Metrics) *TraceWalker {
	return &TraceWalker{
		decoder: decoder,
		ledger:  ledger,
		logger:  logger.EnsureLogger(log),
		metrics: ensureMetrics(m),
	}
}

// Walk returns once the whole forest has been visited.
func (w *TraceWalker) Walk(ctx context.Context, roots []*TraceNode) WalkStats {
	if len(roots) == 0 {
		w.logger.Info("No trace calls to process")
		return w.stats
	}
	for _, root := range roots {
		w.visit(ctx, root, 0)
	}
	return w.stats
}

func (w *TraceWalker) visit(ctx context.Context, node *TraceNode, depth int) {
	if node == nil {
		return
	}
	w.stats.Frames++

	if err := w.process(ctx, node); err != nil {
		w.stats.Failures++
		w.metrics.IncDecodeFailure()
		w.logger.Error("Error processing trace call",
			"depth", depth,
			"from", ToLowerHex(node.From),
			"to", ToLowerHex(node.To),
			"error", err)
	}

	for _, child := range node.Calls {
		w.visit(ctx, child, depth+1)
	}
}

func (w *TraceWalker) process(ctx context.Context, node *TraceNode) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while processing frame: %v", r)
		}
	}()

	t, err := w.decoder.Decode(ctx, node)
	if err != nil {
		return err
	}
	if !t.Recognized() {
		return nil
	}

	w.metrics.IncTransferDecoded(t.Kind.String())
	w.logger.Debug("transfer",
		"kind", t.Kind.String(),
		"token", ToLowerHex(t.Asset),
		"from", ToLowerHex(t.From),
		"to", ToLowerHex(t.To),
		"amount", t.Amount.String())

	w.ledger.RecordTransfer(t)
	w.stats.Transfers++
	return nil
}
