package sip

import (
	"context"
	"sort"
	"sync"

	"github.com/sip-protocol/stealthcore/sipslog"
)

var scanLog = sipslog.Default().Component("scanner")

// PreFilterByViewingKey is the honest, viewing-only fast filter §9
// describes as the alternative to a full ownership check when only a
// viewing private key is available (no spending private key): it
// computes sha256(compress(viewingPriv·ephPub)) and compares its first
// byte to viewTag. This is NOT the canonical §4.2 view-tag check (which
// is computed against spendingPriv) and can diverge from it; treat a
// match here as a weak hint, never as confirmation. Only CheckOwnership
// (requiring both secrets) confirms a payment.
func PreFilterByViewingKey(ephPub *Point, viewingPriv *Scalar, viewTag byte) bool {
	shared := ephPub.Mul(viewingPriv)
	sharedBytes := shared.Compress()
	h := SHA256(sharedBytes[:])
	return h[0] == viewTag
}

// Scan runs the full two-secret ownership check (spec.md §4.2, via
// CheckOwnershipByAddress against each announcement's StealthEthAddress,
// then RecoverSpendingKey) over announcements sequentially,
// in order, against every registered recipient. The returned slice
// preserves input order; when more than one recipient matches the same
// announcement, each match is emitted in recipient registration order
// immediately after that announcement's entry.
//
// ctx is checked between announcements (not between recipients within
// one announcement, since that inner loop is a handful of group
// operations and not worth a cancellation check of its own).
func Scan(ctx context.Context, announcements []Announcement, recipients []Recipient) ([]DetectedPayment, error) {
	scanLog.Info("scan batch started", "announcements", len(announcements), "recipients", len(recipients))

	var out []DetectedPayment

	for _, ann := range announcements {
		if err := ctx.Err(); err != nil {
			scanLog.Warn("scan cancelled", "detected", len(out), "err", err)
			return out, err
		}

		matches, err := matchRecipients(ann, recipients)
		if err != nil {
			return out, err
		}
		out = append(out, matches...)
	}

	scanLog.Info("scan batch finished", "detected", len(out))
	return out, nil
}

// matchRecipients runs the full ownership check for one announcement
// against every recipient, in registration order. An announcement carries
// only the 20-byte stealth address, not the stealth public key, so the
// address-based check is used.
func matchRecipients(ann Announcement, recipients []Recipient) ([]DetectedPayment, error) {
	stealth := &StealthAddress{EphemeralPub: ann.EphemeralPub, ViewTag: ann.ViewTag}

	var matches []DetectedPayment
	for _, r := range recipients {
		secrets := r.secrets()

		ok, err := CheckOwnershipByAddress(ann.StealthEthAddress, ann.EphemeralPub, ann.ViewTag, secrets)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}

		recoveredKey, err := RecoverSpendingKey(stealth, secrets)
		if err != nil {
			return nil, err
		}
		matches = append(matches, DetectedPayment{
			Announcement:         ann,
			RecipientLabel:       r.Label,
			RecoveredSpendingKey: recoveredKey,
		})
	}
	return matches, nil
}

// indexedResult pairs a batch of matches with the input index of the
// announcement that produced them, so ScanParallel can restore input
// order after dispatching work across a worker pool.
type indexedResult struct {
	index   int
	matches []DetectedPayment
	err     error
}

// ScanParallel is Scan's worker-pool counterpart: it dispatches the
// per-announcement ownership check across workers goroutines reading
// from the shared, read-only announcements slice, then re-sorts results
// by input index into an order-preserving sink (spec.md §5's default
// ordering guarantee). workers <= 0 is treated as 1.
//
// ctx cancellation is checked by the dispatcher before it hands each
// announcement to a worker; a cancelled context stops new work from
// being dispatched but workers already in flight still
// report their result so the returned slice is always a well-formed
// prefix-consistent (if partial) batch.
func ScanParallel(ctx context.Context, announcements []Announcement, recipients []Recipient, workers int) ([]DetectedPayment, error) {
	if workers <= 0 {
		workers = 1
	}
	scanLog.Info("parallel scan batch started", "announcements", len(announcements), "recipients", len(recipients), "workers", workers)

	jobs := make(chan int)
	results := make(chan indexedResult, len(announcements))

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for idx := range jobs {
				matches, err := matchRecipients(announcements[idx], recipients)
				results <- indexedResult{index: idx, matches: matches, err: err}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i := range announcements {
			select {
			case <-ctx.Done():
				return
			case jobs <- i:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	collected := make([]indexedResult, 0, len(announcements))
	var firstErr error
	for res := range results {
		if res.err != nil && firstErr == nil {
			firstErr = res.err
		}
		collected = append(collected, res)
	}

	sort.Slice(collected, func(i, j int) bool { return collected[i].index < collected[j].index })

	var out []DetectedPayment
	for _, res := range collected {
		out = append(out, res.matches...)
	}

	if firstErr != nil {
		scanLog.Warn("parallel scan batch failed", "detected", len(out), "err", firstErr)
		return out, firstErr
	}
	scanLog.Info("parallel scan batch finished", "detected", len(out))
	return out, ctx.Err()
}
