// Package notify delivers new-order messages to the kitchen.
//
// A Bridge either confirms delivery or returns an error; it never touches
// the order. The caller records the delivery in the order history only
// after Send returns nil.
//
// Providers:
//   - whatsapp: Twilio WhatsApp Messages API
//   - amqp: RabbitMQ topic exchange with publisher confirms
//   - log: writes the message to the structured log
//
// New picks a provider from Config, see DetectProvider, and wraps it with
// exponential backoff retry. Client errors from the WhatsApp API are not
// retried.
package notify
