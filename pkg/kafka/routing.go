package kafka

import (
	"errors"
	"strings"
)

// Binding связывает очередь (consumer group) с exchange (топиком) по шаблону
// routing key. В шаблоне "*" совпадает ровно с одним словом, "#" - с нулём
// или более слов; слова разделяются точкой.
type Binding struct {
	Queue      string
	Exchange   string
	RoutingKey string
}

// Validate проверяет, что все поля заданы.
func (b Binding) Validate() error {
	switch {
	case b.Queue == "":
		return errors.New("не указана очередь")
	case b.Exchange == "":
		return errors.New("не указан exchange")
	case b.RoutingKey == "":
		return errors.New("не указан шаблон routing key")
	}
	return nil
}

// Matches проверяет, попадает ли сообщение в очередь.
func (b Binding) Matches(routingKey string) bool {
	return MatchRoutingKey(b.RoutingKey, routingKey)
}

// MatchRoutingKey сопоставляет routing key с шаблоном привязки.
func MatchRoutingKey(pattern, key string) bool {
	if pattern == key {
		return true
	}
	return matchWords(strings.Split(pattern, "."), strings.Split(key, "."))
}

func matchWords(pattern, key []string) bool {
	for len(pattern) > 0 {
		switch pattern[0] {
		case "#":
			rest := pattern[1:]
			if len(rest) == 0 {
				return true
			}
			for i := 0; i <= len(key); i++ {
				if matchWords(rest, key[i:]) {
					return true
				}
			}
			return false
		case "*":
			if len(key) == 0 {
				return false
			}
		default:
			if len(key) == 0 || key[0] != pattern[0] {
				return false
			}
		}
		pattern, key = pattern[1:], key[1:]
	}
	return len(key) == 0
}
