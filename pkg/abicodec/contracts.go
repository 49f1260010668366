package abicodec

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const usageLimitTuple = `{"internalType":"struct SessionLib.UsageLimit","name":"%s","type":"tuple","components":[
	{"internalType":"enum SessionLib.LimitType","name":"limitType","type":"uint8"},
	{"internalType":"uint256","name":"limit","type":"uint256"},
	{"internalType":"uint256","name":"period","type":"uint256"}]}`

const limitStateTuple = `{"internalType":"struct SessionLib.LimitState[]","name":"%s","type":"tuple[]","components":[
	{"internalType":"uint256","name":"remaining","type":"uint256"},
	{"internalType":"address","name":"target","type":"address"},
	{"internalType":"bytes4","name":"selector","type":"bytes4"},
	{"internalType":"uint256","name":"index","type":"uint256"}]}`

var sessionSpecTuple = `{"internalType":"struct SessionLib.SessionSpec","name":"sessionSpec","type":"tuple","components":[
	{"internalType":"address","name":"signer","type":"address"},
	{"internalType":"uint256","name":"expiresAt","type":"uint256"},
	` + fmt.Sprintf(usageLimitTuple, "feeLimit") + `,
	{"internalType":"struct SessionLib.CallSpec[]","name":"callPolicies","type":"tuple[]","components":[
		{"internalType":"address","name":"target","type":"address"},
		{"internalType":"bytes4","name":"selector","type":"bytes4"},
		{"internalType":"uint256","name":"maxValuePerUse","type":"uint256"},
		` + fmt.Sprintf(usageLimitTuple, "valueLimit") + `,
		{"internalType":"struct SessionLib.Constraint[]","name":"constraints","type":"tuple[]","components":[
			{"internalType":"enum SessionLib.Condition","name":"condition","type":"uint8"},
			{"internalType":"uint64","name":"index","type":"uint64"},
			{"internalType":"bytes32","name":"refValue","type":"bytes32"},
			` + fmt.Sprintf(usageLimitTuple, "limit") + `]}]},
	{"internalType":"struct SessionLib.TransferSpec[]","name":"transferPolicies","type":"tuple[]","components":[
		{"internalType":"address","name":"target","type":"address"},
		{"internalType":"uint256","name":"maxValuePerUse","type":"uint256"},
		` + fmt.Sprintf(usageLimitTuple, "valueLimit") + `]}]}`

// sessionValidatorABI is the subset of the SessionKeyValidator interface used by the SDK.
var sessionValidatorABI = `[
{"type":"function","name":"createSession","stateMutability":"nonpayable","outputs":[],
 "inputs":[` + sessionSpecTuple + `]},
{"type":"function","name":"revokeKey","stateMutability":"nonpayable","outputs":[],
 "inputs":[{"internalType":"bytes32","name":"sessionHash","type":"bytes32"}]},
{"type":"function","name":"revokeKeys","stateMutability":"nonpayable","outputs":[],
 "inputs":[{"internalType":"bytes32[]","name":"sessionHashes","type":"bytes32[]"}]},
{"type":"function","name":"sessionStatus","stateMutability":"view",
 "inputs":[{"internalType":"address","name":"account","type":"address"},{"internalType":"bytes32","name":"sessionHash","type":"bytes32"}],
 "outputs":[{"internalType":"enum SessionLib.Status","name":"","type":"uint8"}]},
{"type":"function","name":"sessionState","stateMutability":"view",
 "inputs":[{"internalType":"address","name":"account","type":"address"},` + sessionSpecTuple + `],
 "outputs":[{"internalType":"struct SessionLib.SessionState","name":"","type":"tuple","components":[
	{"internalType":"enum SessionLib.Status","name":"status","type":"uint8"},
	{"internalType":"uint256","name":"feesRemaining","type":"uint256"},
	` + fmt.Sprintf(limitStateTuple, "transferValue") + `,
	` + fmt.Sprintf(limitStateTuple, "callValue") + `,
	` + fmt.Sprintf(limitStateTuple, "callParams") + `]}]}
]`

// accountFactoryABI is the subset of the account factory interface used for deployment.
const accountFactoryABI = `[
{"type":"function","name":"deployProxySsoAccount","stateMutability":"nonpayable",
 "inputs":[
	{"internalType":"bytes32","name":"_salt","type":"bytes32"},
	{"internalType":"string","name":"_uniqueAccountId","type":"string"},
	{"internalType":"bytes[]","name":"_initialValidators","type":"bytes[]"},
	{"internalType":"address[]","name":"_initialK1Owners","type":"address[]"}],
 "outputs":[{"internalType":"address","name":"accountAddress","type":"address"}]},
{"type":"event","name":"AccountCreated","anonymous":false,
 "inputs":[
	{"indexed":true,"internalType":"address","name":"accountAddress","type":"address"},
	{"indexed":false,"internalType":"string","name":"uniqueAccountId","type":"string"}]}
]`

var (
	// SessionValidatorABI is the parsed session validator interface.
	SessionValidatorABI = mustParse(sessionValidatorABI)

	// AccountFactoryABI is the parsed account factory interface.
	AccountFactoryABI = mustParse(accountFactoryABI)
)

func mustParse(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(fmt.Sprintf("abicodec: invalid ABI definition: %v", err))
	}
	return parsed
}

func mustType(t string) abi.Type {
	typ, err := abi.NewType(t, "", nil)
	if err != nil {
		panic(fmt.Sprintf("abicodec: invalid type %s: %v", t, err))
	}
	return typ
}

var (
	bytesType     = mustType("bytes")
	addressType   = mustType("address")
	stringType    = mustType("string")
	uint64Slice   = mustType("uint64[]")
	bytes32Pair   = mustType("bytes32[2]")
	sessionSpecIn = SessionValidatorABI.Methods["createSession"].Inputs

	// (SessionSpec, uint64[]) validator payload.
	sessionTxArgs = abi.Arguments{sessionSpecIn[0], {Name: "periodIds", Type: uint64Slice}}

	// (bytes, address, bytes) composite signature.
	signatureArgs = abi.Arguments{
		{Name: "signature", Type: bytesType},
		{Name: "validator", Type: addressType},
		{Name: "validatorData", Type: bytesType},
	}

	// (address, bytes) module install payload.
	moduleDataArgs = abi.Arguments{
		{Name: "module", Type: addressType},
		{Name: "parameters", Type: bytesType},
	}

	// (bytes, bytes32[2], string) passkey module parameters.
	passkeyArgs = abi.Arguments{
		{Name: "credentialId", Type: bytesType},
		{Name: "xyPublicKey", Type: bytes32Pair},
		{Name: "expectedOrigin", Type: stringType},
	}
)
