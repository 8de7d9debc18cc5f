package config

import (
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/restockwatch/internal/foundation/errors"
)

const exampleConfig = `# restockwatch configuration
targets:
  - url: https://www.cardsnation.cz/pokemon-tcg--me-2-5-ascended-heroes-elite-trainer-box/
    name: Ascended Heroes ETB (cardsnation)
  - url: https://www.kuma.cz/pokemon-tcg-mega-evolution-ascended-heroes-elite-trainer-box-dragonite/

# Omit "rules" to use the built-in Czech pattern tables.
rules:
  negative:
    - 'Položka byla vyprodána'
    - 'Dostupnost:\s*Objednáno'
    - '\bHlídat\b'
  positive:
    - 'Do košíku'
    - 'Vložit do košíku'
    - 'Přidat do košíku'
    - 'Koupit'
    - 'schema\.org/InStock'

hosts:
  - match: kuma.cz
    strategy: markers
    in_stock: ['schema\.org/InStock']
    out_of_stock: ['schema\.org/(?:OutOfStock|SoldOut|PreOrder)']
    default: not_available

fetch:
  timeout: 30s
  user_agent: AvailabilityMonitor/1.0
  accept_language: "cs,en;q=0.8"

run:
  delay: 3s

heartbeat:
  interval: 24h

state:
  path: state.json

notify:
  telegram:
    bot_token: ${TELEGRAM_BOT_TOKEN}
    chat_id: ${TELEGRAM_CHAT_ID}
    retry:
      max_retries: 2
      backoff: exponential
      initial: 2s
      max: 30s

events:
  nats:
    enabled: false
    url: nats://127.0.0.1:4222
    subject: restockwatch.transitions

history:
  enabled: false
  path: history.db

metrics:
  textfile: ""
  listen: ""

watch:
  interval: 10m

logging:
  level: info
  format: text
`

// Init writes an example configuration file.
func Init(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return errors.ConfigError("configuration file already exists (use --force to overwrite)").
			WithContext("path", path).Build()
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return errors.WrapError(err, errors.CategoryFileSystem, "create config directory").Build()
		}
	}
	if err := os.WriteFile(path, []byte(exampleConfig), 0o600); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "write config file").WithContext("path", path).Build()
	}
	return nil
}
