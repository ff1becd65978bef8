package entity

// Table names
const (
	TableVouchers = "gutscheine"
	TableMessages = "messages"
	TableAlpakas  = "alpakas"
	TableEvents   = "events"
)

// Partition keys. Events are partitioned by alpaka id instead.
const (
	VoucherPartition = "VoucherPartition"
	ContactPartition = "ContactPartition"
	AlpakaPartition  = "AlpakaPartition"
)

// DateLayout is the wire format for date-only values
const DateLayout = "2006-01-02"
