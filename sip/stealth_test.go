package sip

import (
	"context"
	"strings"
	"testing"
)

func TestGenerateMetaAddressInvariant(t *testing.T) {
	meta, secrets, err := GenerateMetaAddress("eth")
	if err != nil {
		t.Fatalf("GenerateMetaAddress: %v", err)
	}
	if !secrets.SpendingPriv.Point().Equal(meta.SpendingPub) {
		t.Fatal("spendingPriv*G != spendingPub")
	}
	if !secrets.ViewingPriv.Point().Equal(meta.ViewingPub) {
		t.Fatal("viewingPriv*G != viewingPub")
	}
}

func TestMetaAddressEncodeParseRoundTrip(t *testing.T) {
	meta, _, err := GenerateMetaAddress("eth")
	if err != nil {
		t.Fatalf("GenerateMetaAddress: %v", err)
	}

	encoded := EncodeMetaAddress(meta)
	if len(encoded) != metaAddressLen {
		t.Fatalf("encoded length = %d, want %d", len(encoded), metaAddressLen)
	}
	if !strings.HasPrefix(encoded, metaAddressPrefix) {
		t.Fatalf("encoded %q missing prefix %q", encoded, metaAddressPrefix)
	}

	parsed, err := ParseMetaAddress(encoded)
	if err != nil {
		t.Fatalf("ParseMetaAddress: %v", err)
	}
	if !parsed.SpendingPub.Equal(meta.SpendingPub) {
		t.Fatal("spendingPub did not round-trip")
	}
	if !parsed.ViewingPub.Equal(meta.ViewingPub) {
		t.Fatal("viewingPub did not round-trip")
	}
}

func TestParseMetaAddressBoundaryLength(t *testing.T) {
	meta, _, err := GenerateMetaAddress("eth")
	if err != nil {
		t.Fatalf("GenerateMetaAddress: %v", err)
	}
	encoded := EncodeMetaAddress(meta)

	tooShort := encoded[:len(encoded)-1]
	if _, err := ParseMetaAddress(tooShort); !IsInvalidMetaAddressFormat(err) {
		t.Fatalf("length %d: expected InvalidMetaAddressFormat, got %v", len(tooShort), err)
	}

	tooLong := encoded + "0"
	if _, err := ParseMetaAddress(tooLong); !IsInvalidMetaAddressFormat(err) {
		t.Fatalf("length %d: expected InvalidMetaAddressFormat, got %v", len(tooLong), err)
	}
}

func TestParseMetaAddressRejectsBadPrefixAndNonHex(t *testing.T) {
	meta, _, err := GenerateMetaAddress("eth")
	if err != nil {
		t.Fatalf("GenerateMetaAddress: %v", err)
	}
	encoded := EncodeMetaAddress(meta)

	wrongPrefix := "xx:eth:0x" + encoded[len(metaAddressPrefix):]
	if _, err := ParseMetaAddress(wrongPrefix); !IsInvalidMetaAddressFormat(err) {
		t.Fatalf("expected InvalidMetaAddressFormat for bad prefix, got %v", err)
	}

	nonHex := encoded[:len(encoded)-1] + "z"
	if _, err := ParseMetaAddress(nonHex); !IsInvalidMetaAddressFormat(err) {
		t.Fatalf("expected InvalidMetaAddressFormat for non-hex digit, got %v", err)
	}
}

// Scenario A — Bob receives from Alice.
func TestScenarioA_BobReceivesFromAlice(t *testing.T) {
	bobMeta, bobSecrets, err := GenerateMetaAddress("eth")
	if err != nil {
		t.Fatalf("GenerateMetaAddress: %v", err)
	}

	encoded := EncodeMetaAddress(bobMeta)
	parsedMeta, err := ParseMetaAddress(encoded)
	if err != nil {
		t.Fatalf("ParseMetaAddress: %v", err)
	}

	stealth, err := GenerateStealthAddress(parsedMeta)
	if err != nil {
		t.Fatalf("GenerateStealthAddress: %v", err)
	}

	recipient := Recipient{SpendingPriv: bobSecrets.SpendingPriv, ViewingPriv: bobSecrets.ViewingPriv, Label: "bob"}
	out, err := Scan(context.Background(), []Announcement{{
		StealthEthAddress: EthAddressFromPoint(stealth.StealthPub),
		EphemeralPub:      stealth.EphemeralPub,
		ViewTag:           stealth.ViewTag,
	}}, []Recipient{recipient})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected exactly one detected payment, got %d", len(out))
	}
	if !out[0].RecoveredSpendingKey.Point().Equal(stealth.StealthPub) {
		t.Fatal("recoveredSpendingKey*G != stealthPub")
	}

	addr := EthAddressFromPoint(stealth.StealthPub)
	gotAddr := EthAddressFromPoint(out[0].RecoveredSpendingKey.Point())
	if addr != gotAddr {
		t.Fatal("recovered key's address does not match stealth address")
	}
}

// Scenario B — Alice cannot detect Bob's inbound.
func TestScenarioB_AliceCannotDetectBobsInbound(t *testing.T) {
	bobMeta, _, err := GenerateMetaAddress("eth")
	if err != nil {
		t.Fatalf("GenerateMetaAddress: %v", err)
	}
	_, aliceSecrets, err := GenerateMetaAddress("eth")
	if err != nil {
		t.Fatalf("GenerateMetaAddress: %v", err)
	}

	stealth, err := GenerateStealthAddress(bobMeta)
	if err != nil {
		t.Fatalf("GenerateStealthAddress: %v", err)
	}

	aliceRecipient := Recipient{SpendingPriv: aliceSecrets.SpendingPriv, ViewingPriv: aliceSecrets.ViewingPriv, Label: "alice"}
	out, err := Scan(context.Background(), []Announcement{{
		EphemeralPub: stealth.EphemeralPub,
		ViewTag:      stealth.ViewTag,
	}}, []Recipient{aliceRecipient})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("expected zero detected payments, got %d", len(out))
	}
}

func TestCheckOwnershipByAddress(t *testing.T) {
	meta, secrets, err := GenerateMetaAddress("eth")
	if err != nil {
		t.Fatalf("GenerateMetaAddress: %v", err)
	}
	stealth, err := GenerateStealthAddress(meta)
	if err != nil {
		t.Fatalf("GenerateStealthAddress: %v", err)
	}

	addr := EthAddressFromPoint(stealth.StealthPub)
	ok, err := CheckOwnershipByAddress(addr, stealth.EphemeralPub, stealth.ViewTag, secrets)
	if err != nil {
		t.Fatalf("CheckOwnershipByAddress: %v", err)
	}
	if !ok {
		t.Fatal("expected ownership match by address")
	}

	var wrongAddr [20]byte
	copy(wrongAddr[:], addr[:])
	wrongAddr[0] ^= 0xFF
	ok, err = CheckOwnershipByAddress(wrongAddr, stealth.EphemeralPub, stealth.ViewTag, secrets)
	if err != nil {
		t.Fatalf("CheckOwnershipByAddress: %v", err)
	}
	if ok {
		t.Fatal("expected no match for a mutated address")
	}
}

// Scenario C — View-tag short-circuit: across 1000 unrelated recipients,
// the full ownership check should pass for only a small handful.
func TestScenarioC_ViewTagShortCircuit(t *testing.T) {
	_, bobSecrets, err := GenerateMetaAddress("eth")
	if err != nil {
		t.Fatalf("GenerateMetaAddress: %v", err)
	}

	const n = 1000
	anns := make([]Announcement, 0, n)
	for i := 0; i < n; i++ {
		otherMeta, _, err := GenerateMetaAddress("eth")
		if err != nil {
			t.Fatalf("GenerateMetaAddress: %v", err)
		}
		stealth, err := GenerateStealthAddress(otherMeta)
		if err != nil {
			t.Fatalf("GenerateStealthAddress: %v", err)
		}
		anns = append(anns, Announcement{EphemeralPub: stealth.EphemeralPub, ViewTag: stealth.ViewTag})
	}

	bobRecipient := Recipient{SpendingPriv: bobSecrets.SpendingPriv, ViewingPriv: bobSecrets.ViewingPriv, Label: "bob"}
	out, err := Scan(context.Background(), anns, []Recipient{bobRecipient})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	// binomial(1000, 1/256) has mean ~3.9; allow generous slack for a
	// statistical test running once in CI.
	if len(out) > 30 {
		t.Fatalf("expected at most ~30 spurious full-check passes out of 1000, got %d", len(out))
	}
}

func TestViewTagDistribution(t *testing.T) {
	meta, _, err := GenerateMetaAddress("eth")
	if err != nil {
		t.Fatalf("GenerateMetaAddress: %v", err)
	}

	const samples = 2560
	var buckets [256]int
	for i := 0; i < samples; i++ {
		stealth, err := GenerateStealthAddress(meta)
		if err != nil {
			t.Fatalf("GenerateStealthAddress: %v", err)
		}
		buckets[stealth.ViewTag]++
	}

	expected := float64(samples) / 256
	for tag, count := range buckets {
		if float64(count) < 0.30*expected || float64(count) > 3.00*expected {
			t.Fatalf("bucket %d has count %d, expected within [%.1f,%.1f]", tag, count, 0.30*expected, 3.00*expected)
		}
	}
}
