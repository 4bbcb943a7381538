package service

import (
	"strings"

	"sadad-payment-service/internal/core/domain"
	"sadad-payment-service/pkg/phpjson"
)

// checksumFields are the names the gateway uses for the checksum. They are never part
// of the signed payload.
var checksumFields = []string{"checksumhash", "checksum"}

// Field aliases per flavour, first match wins. The gateway sends different names to the
// booking and product integrations, and each has drifted over time.
var (
	bookingAliases = callbackAliases{
		orderID:  []string{"order_id", "ORDERID", "ORDER_ID"},
		txnNo:    []string{"transaction_number", "transactionNumber", "TXNNUMBER", "transaction_id"},
		status:   []string{"status", "RESPCODE"},
		message:  []string{"error_message", "message", "RESPMSG"},
		amount:   []string{"amount", "TXNAMOUNT"},
		checksum: []string{"checksum", "checksumhash"},
	}
	productAliases = callbackAliases{
		orderID:  []string{"ORDERID", "order_id", "ORDER_ID"},
		txnNo:    []string{"transaction_number", "TXNNUMBER", "transactionNumber", "transaction_id"},
		status:   []string{"RESPCODE", "status"},
		message:  []string{"RESPMSG", "error_message", "message"},
		amount:   []string{"TXNAMOUNT", "amount"},
		checksum: []string{"checksumhash", "checksum"},
	}
)

type callbackAliases struct {
	orderID  []string
	txnNo    []string
	status   []string
	message  []string
	amount   []string
	checksum []string
}

// NormalizeCallback maps received fields onto a CallbackRecord for the given flavour.
func NormalizeCallback(flavour domain.SourceKind, fields domain.CallbackFields) domain.CallbackRecord {
	aliases := bookingAliases
	if flavour == domain.SourceKindProductOrder {
		aliases = productAliases
	}

	rec := domain.CallbackRecord{
		Flavour:           flavour,
		OrderID:           strings.TrimSpace(fields.Get(aliases.orderID...)),
		TransactionNumber: strings.TrimSpace(fields.Get(aliases.txnNo...)),
		StatusCode:        strings.TrimSpace(fields.Get(aliases.status...)),
		GatewayMessage:    strings.TrimSpace(fields.Get(aliases.message...)),
		Amount:            strings.TrimSpace(fields.Get(aliases.amount...)),
		Fields:            fields,
	}
	for _, name := range aliases.checksum {
		if fields.Has(name) {
			rec.Checksum = fields.Get(name)
			rec.ChecksumField = name
			break
		}
	}
	return rec
}

// signedFields rebuilds the ordered payload the gateway signed: every received field
// except the checksum itself, in received order.
func signedFields(fields domain.CallbackFields) phpjson.Object {
	out := make(phpjson.Object, 0, len(fields))
	for _, f := range fields {
		skip := false
		for _, name := range checksumFields {
			if f.Key == name {
				skip = true
				break
			}
		}
		if !skip {
			out = append(out, phpjson.Field{Key: f.Key, Value: f.Value})
		}
	}
	return out
}
