package fixmsg

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Typed accessors are zero-copy views over the string stored in the
// FieldMap — nothing is cached, so a later SetField is always
// reflected (§9 Design Notes: typed fields are views, not a
// polymorphic value container).

const utcTimestampLayout = "20060102-15:04:05.000"
const utcTimeOnlyLayout = "15:04:05.000"
const utcDateOnlyLayout = "20060102"

// GetInt reads tag as a decimal integer (INT/LENGTH/NUMINGROUP/SEQNUM/
// TAGNUM/DAYOFMONTH).
func (fm *FieldMap) GetInt(tag int) (int, error) {
	v, err := fm.GetField(tag)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, &EncodingError{Tag: tag, Value: v, Reason: "not an integer"}
	}
	return n, nil
}

// SetInt stores n as tag's decimal string value.
func (fm *FieldMap) SetInt(tag int, n int, respectOrder bool) {
	fm.SetField(tag, strconv.Itoa(n), respectOrder)
}

// GetDecimal reads tag as a decimal.Decimal (FLOAT/QTY/PRICE/
// PRICEOFFSET/AMT/PERCENTAGE).
func (fm *FieldMap) GetDecimal(tag int) (decimal.Decimal, error) {
	v, err := fm.GetField(tag)
	if err != nil {
		return decimal.Decimal{}, err
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Decimal{}, &EncodingError{Tag: tag, Value: v, Reason: "not a decimal"}
	}
	return d, nil
}

// SetDecimal stores d as tag's value.
func (fm *FieldMap) SetDecimal(tag int, d decimal.Decimal, respectOrder bool) {
	fm.SetField(tag, d.String(), respectOrder)
}

// GetBool reads tag as a BOOLEAN ('Y'/'N').
func (fm *FieldMap) GetBool(tag int) (bool, error) {
	v, err := fm.GetField(tag)
	if err != nil {
		return false, err
	}
	switch v {
	case "Y":
		return true, nil
	case "N":
		return false, nil
	default:
		return false, &EncodingError{Tag: tag, Value: v, Reason: "not Y/N"}
	}
}

// SetBool stores b as 'Y' or 'N'.
func (fm *FieldMap) SetBool(tag int, b bool, respectOrder bool) {
	if b {
		fm.SetField(tag, "Y", respectOrder)
	} else {
		fm.SetField(tag, "N", respectOrder)
	}
}

// GetUTCTimestamp reads tag as a UTCTIMESTAMP (YYYYMMDD-HH:MM:SS.sss).
func (fm *FieldMap) GetUTCTimestamp(tag int) (time.Time, error) {
	v, err := fm.GetField(tag)
	if err != nil {
		return time.Time{}, err
	}
	t, err := time.Parse(utcTimestampLayout, v)
	if err != nil {
		return time.Time{}, &EncodingError{Tag: tag, Value: v, Reason: "not a UTCTIMESTAMP"}
	}
	return t.UTC(), nil
}

// SetUTCTimestamp stores t, truncated to millisecond precision, as a
// UTCTIMESTAMP literal.
func (fm *FieldMap) SetUTCTimestamp(tag int, t time.Time, respectOrder bool) {
	fm.SetField(tag, t.UTC().Format(utcTimestampLayout), respectOrder)
}

// GetUTCDateOnly reads tag as a UTCDATEONLY (YYYYMMDD).
func (fm *FieldMap) GetUTCDateOnly(tag int) (time.Time, error) {
	v, err := fm.GetField(tag)
	if err != nil {
		return time.Time{}, err
	}
	t, err := time.Parse(utcDateOnlyLayout, v)
	if err != nil {
		return time.Time{}, &EncodingError{Tag: tag, Value: v, Reason: "not a UTCDATEONLY"}
	}
	return t.UTC(), nil
}

// GetString reads tag verbatim (STRING/CHAR/CURRENCY/EXCHANGE/...).
func (fm *FieldMap) GetString(tag int) (string, error) { return fm.GetField(tag) }

// SetString stores s verbatim.
func (fm *FieldMap) SetString(tag int, s string, respectOrder bool) {
	fm.SetField(tag, s, respectOrder)
}

// GetData reads tag as a DATA field's raw bytes (identical storage to
// GetString; named separately because DATA values may contain bytes
// that would be SOH elsewhere in the stream — the codec, not this
// accessor, is what makes that safe).
func (fm *FieldMap) GetData(tag int) ([]byte, error) {
	v, err := fm.GetField(tag)
	if err != nil {
		return nil, err
	}
	return []byte(v), nil
}
