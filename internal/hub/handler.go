package hub

import (
	"Lumen/internal/event"
	"Lumen/internal/model"
	"Lumen/internal/service"
	"errors"

	"go.uber.org/zap"
)

func (c *Client) handleEvent(ev event.WsEvent) {
	switch ev.Event {
	case event.EventOpenConversation:
		var payload model.OpenConversationPayload
		if err := ev.Decode(&payload); err != nil {
			c.sendError(ev, event.CodeBadRequest, "invalid payload")
			return
		}
		if err := c.merge.OpenConversation(c.ctx, payload.PartnerID); err != nil {
			c.fail(ev, err)
			return
		}
		c.emit(event.EventConversationOpened, model.ConversationOpenedEvent{
			PartnerID: payload.PartnerID,
			Messages:  c.merge.Messages(),
		}, ev.RequestId)

	case event.EventSendMessage:
		var payload model.SendMessagePayload
		if err := ev.Decode(&payload); err != nil {
			c.sendError(ev, event.CodeBadRequest, "invalid payload")
			return
		}
		msg, err := c.merge.SendLocal(c.ctx, payload.Content)
		if err != nil {
			c.fail(ev, err)
			return
		}
		c.emit(event.EventMessageSent, model.MessageEvent{Message: msg}, ev.RequestId)

	case event.EventMarkRead:
		count, err := c.merge.MarkRead(c.ctx)
		if err != nil {
			c.fail(ev, err)
			return
		}
		c.emit(event.EventMessagesRead, model.MessagesReadEvent{
			PartnerID: c.OpenPartnerID(),
			Count:     count,
		}, ev.RequestId)
		if count > 0 {
			c.refreshConversations()
		}

	case event.EventCloseConversation:
		if err := c.merge.Close(); err != nil {
			c.logger.Warn("failed to close conversation", zap.Error(err))
		}

	default:
		c.logger.Debug("unknown event type", zap.String("event", ev.Event))
		c.sendError(ev, event.CodeUnknown, "unknown event: "+ev.Event)
	}
}

// fail reports err back to the connection that caused it.
func (c *Client) fail(ev event.WsEvent, err error) {
	switch {
	case errors.Is(err, service.ErrConversationSwitched):
		c.logger.Debug("request superseded by a newer conversation", zap.String("event", ev.Event))
	case service.IsValidation(err):
		c.sendError(ev, event.CodeValidation, err.Error())
	case service.IsStore(err):
		c.logger.Warn("store request failed", zap.String("event", ev.Event), zap.Error(err))
		c.sendError(ev, event.CodeStore, "message store unavailable")
	default:
		c.logger.Error("event handling failed", zap.String("event", ev.Event), zap.Error(err))
		c.sendError(ev, event.CodeInternal, "internal error")
	}
}

func (c *Client) sendError(ev event.WsEvent, code, message string) {
	c.emit(event.EventError, model.ErrorPayload{Code: code, Message: message}, ev.RequestId)
}
