package nerdfonts

// Status symbols
const (
	InfoCircle          = "\uF05A"
	CheckCircle         = "\uF058"
	ExclamationCircle   = "\uF06A"
	ExclamationTriangle = "\uF071"
)

// Auth flow symbols
const (
	Key    = "\uF084"
	Lock   = "\uF023"
	Unlock = "\uF09C"
	Globe  = "\uF0AC"
	Timer  = "\uF2F2"
)

// Calendar symbols
const (
	Calendar      = "\uF073"
	CalendarCheck = "\uF274"
)
