package paymob

import (
	"crypto/hmac"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

// transactionHMACFields is the fixed, lexicographic field order the gateway
// concatenates before signing transaction callbacks.
var transactionHMACFields = []string{
	"amount_cents",
	"created_at",
	"currency",
	"error_occured",
	"has_parent_transaction",
	"id",
	"integration_id",
	"is_3d_secure",
	"is_auth",
	"is_capture",
	"is_refunded",
	"is_standalone_payment",
	"is_voided",
	"order.id",
	"owner",
	"pending",
	"source_data.pan",
	"source_data.sub_type",
	"source_data.type",
	"success",
}

// ComputeSignature signs the concatenation of values with HMAC-SHA512 and
// returns the lowercase hex digest.
func ComputeSignature(secret string, values []string) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write([]byte(strings.Join(values, "")))
	return hex.EncodeToString(mac.Sum(nil))
}

// TransactionSignatureValues extracts the HMAC fields from a flattened
// callback payload in the order the gateway signs them. Missing fields
// contribute an empty string, matching the gateway's behavior for nulls.
func TransactionSignatureValues(flat map[string]string) []string {
	values := make([]string, 0, len(transactionHMACFields))
	for _, field := range transactionHMACFields {
		values = append(values, flat[field])
	}
	return values
}

// VerifySignature compares a provided hex signature against the computed one
// in constant time.
func VerifySignature(secret string, values []string, provided string) bool {
	if secret == "" || provided == "" {
		return false
	}
	expected := ComputeSignature(secret, values)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(strings.ToLower(provided))) == 1
}

// VerifyTransactionSignature verifies the x-signature on a transaction
// callback given its flattened payload.
func VerifyTransactionSignature(secret string, flat map[string]string, provided string) bool {
	return VerifySignature(secret, TransactionSignatureValues(flat), provided)
}
