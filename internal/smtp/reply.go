package smtp

// Fixed reply lines. Replies that embed session details are built in the
// handlers.
const (
	replyQueued       = "250 Queued mail for delivery"
	replyClosing      = "221 Closing connection."
	replySenderOK     = "250 Sender ok"
	replyRecipientOK  = "250 Recipient ok"
	replyStartMail    = "354 Start mail input; end with <CRLF>.<CRLF>"
	replyResetState   = "250 Reset state"
	replyNoopOK       = "250 OK"
	replyVrfy         = "252 Cannot VRFY user, but will accept message and attempt delivery"
	replyHelp         = "211 Supported commands: HELO EHLO MAIL RCPT DATA RSET NOOP VRFY EXPN HELP QUIT"
	replyUnknown      = "500 Syntax error, command unrecognized"
	replyBadHelo      = "501 Invalid HELO/EHLO hostname"
	replyBadAddress   = "501 Invalid address"
	replyBadSequence  = "503 Bad sequence of commands"
	replyRelayDenied  = "530 Relaying not allowed for policy reasons"
	replyBadMailbox   = "553 Requested action not taken: mailbox name not allowed"
	replyNoRecipients = "471 No recipients specified, send RCPT TO first"
	replyQuota        = "422 Recipient mailbox exceeded quota limit."
	replyTimeout      = "442 Connection timed out. Closing transmission channel."
	replyEarlyTalker  = "554 Misbehaved SMTP session (EarlyTalker)"
	replyTooManyConns = "421 Service temporarily unavailable, too many sessions. Closing transmission channel."
	replyTempFail     = "421 Service temporarily unavailable, please try again later. Closing transmission channel."
	replyMaxErrors    = "550 Max errors exceeded"
	replyMaxNoop      = "550 Max NOOP count exceeded"
	replyMaxVrfy      = "550 Max VRFY/EXPN count exceeded"
	replyMaxRcpt      = "452 Too many recipients"
	replyMaxMessages  = "451 Session message limit reached"
)
