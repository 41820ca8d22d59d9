package config

// -----------------------------------------------------------------------------
// Embedded tables
//
// Key: board name (the -board flag of the commands)
// Val: raw JSON for that board
// -----------------------------------------------------------------------------

// The ATmega32A has one USART.
const tblATmega32A = `{
  "uarts": [
    {"id": 0, "baud": 9600, "stop_bits": 1, "parity": "none"}
  ]
}`

// Pico UART0 on the default pins.
const tblPico = `{
  "uarts": [
    {"id": 0, "baud": 115200, "stop_bits": 1, "parity": "none"}
  ]
}`

const tblSim = `{
  "uarts": [
    {"id": 0, "baud": 9600,   "stop_bits": 1, "parity": "none"},
    {"id": 1, "baud": 115200, "stop_bits": 2, "parity": "even"}
  ]
}`

var embeddedTables = map[string][]byte{
	"atmega32a": []byte(tblATmega32A),
	"pico":      []byte(tblPico),
	"sim":       []byte(tblSim),
}
