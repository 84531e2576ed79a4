package slmp

import "fmt"

// EndCode is the completion status a PLC returns in every response.
type EndCode uint16

// End codes documented for SLMP servers.
const (
	EndCodeSuccess                EndCode = 0x0000
	EndCodeUnableToWrite          EndCode = 0x0055
	EndCodeInvalidGlobalLabel     EndCode = 0x40C0
	EndCodeWrongCommand           EndCode = 0xC059
	EndCodeWrongFormat            EndCode = 0xC05C
	EndCodeWrongLength            EndCode = 0xC061
	EndCodeCANNotPermittedRead    EndCode = 0xCCC7
	EndCodeCANWriteOnly           EndCode = 0xCCC8
	EndCodeCANReadOnly            EndCode = 0xCCC9
	EndCodeCANUndefinedObject     EndCode = 0xCCCA
	EndCodeCANNotPermittedPDO     EndCode = 0xCCCB
	EndCodeCANExceedPDOMapping    EndCode = 0xCCCC
	EndCodeCANNoSubIndex          EndCode = 0xCCD3
	EndCodeCANWrongParameter      EndCode = 0xCCD4
	EndCodeCANParameterTooHigh    EndCode = 0xCCD5
	EndCodeCANParameterTooLow     EndCode = 0xCCD6
	EndCodeCANTransferError       EndCode = 0xCCDA
	EndCodeCANOther               EndCode = 0xCCFF
	EndCodeBusy                   EndCode = 0xCEE0
	EndCodeExceedRequestLength    EndCode = 0xCEE1
	EndCodeExceedResponseLength   EndCode = 0xCEE2
	EndCodeOtherNetworkError      EndCode = 0xCF00
	EndCodeServerNotFound         EndCode = 0xCF10
	EndCodeWrongConfigItem        EndCode = 0xCF20
	EndCodeParameterIDNotFound    EndCode = 0xCF30
	EndCodeExclusiveWriteNotStart EndCode = 0xCF31
	EndCodeFragmentShortage       EndCode = 0xCF40
	EndCodeFragmentDuplicate      EndCode = 0xCF41
	EndCodeFragmentLost           EndCode = 0xCF43
	EndCodeFragmentNotSupported   EndCode = 0xCF44
	EndCodeRelayFailure           EndCode = 0xCF70
	EndCodeTimeout                EndCode = 0xCF71
)

var endCodeNames = map[EndCode]string{
	EndCodeSuccess:                "success",
	EndCodeUnableToWrite:          "unable to write",
	EndCodeInvalidGlobalLabel:     "invalid global label",
	EndCodeWrongCommand:           "wrong command",
	EndCodeWrongFormat:            "wrong format",
	EndCodeWrongLength:            "wrong length",
	EndCodeCANNotPermittedRead:    "CAN application: read not permitted",
	EndCodeCANWriteOnly:           "CAN application: write only",
	EndCodeCANReadOnly:            "CAN application: read only",
	EndCodeCANUndefinedObject:     "CAN application: undefined object",
	EndCodeCANNotPermittedPDO:     "CAN application: PDO mapping not permitted",
	EndCodeCANExceedPDOMapping:    "CAN application: PDO mapping exceeded",
	EndCodeCANNoSubIndex:          "CAN application: sub-index does not exist",
	EndCodeCANWrongParameter:      "CAN application: wrong parameter",
	EndCodeCANParameterTooHigh:    "CAN application: parameter above range",
	EndCodeCANParameterTooLow:     "CAN application: parameter below range",
	EndCodeCANTransferError:       "CAN application: transfer or store error",
	EndCodeCANOther:               "CAN application: other error",
	EndCodeBusy:                   "busy",
	EndCodeExceedRequestLength:    "request length exceeded",
	EndCodeExceedResponseLength:   "response length exceeded",
	EndCodeOtherNetworkError:      "other network error",
	EndCodeServerNotFound:         "server not found",
	EndCodeWrongConfigItem:        "wrong configuration item",
	EndCodeParameterIDNotFound:    "parameter ID not found",
	EndCodeExclusiveWriteNotStart: "exclusive write not started",
	EndCodeFragmentShortage:       "data fragment shortage",
	EndCodeFragmentDuplicate:      "data fragment duplicated",
	EndCodeFragmentLost:           "data fragment lost",
	EndCodeFragmentNotSupported:   "data fragmentation not supported",
	EndCodeRelayFailure:           "relay failure",
	EndCodeTimeout:                "timeout",
}

// String renders the code as hex followed by its name when known,
// for example "0xC059 (wrong command)".
func (c EndCode) String() string {
	if name, ok := endCodeNames[c]; ok {
		return fmt.Sprintf("0x%04X (%s)", uint16(c), name)
	}
	return fmt.Sprintf("0x%04X", uint16(c))
}
