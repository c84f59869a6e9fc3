package clients

import (
	"context"
	"fmt"
	"net/http"

	"boxoffice/message"

	"github.com/ThreeDotsLabs/go-event-driven/common/clients"
	"github.com/ThreeDotsLabs/go-event-driven/common/log"
)

const printTicketFileTemplate = `<html><body>
Ticket number: %s
Event: %s
Price: %s %s
<img alt="%s" src="qr:%s">
</body></html>`

type FilesClient struct {
	clients *clients.Clients
}

func NewFilesClient(clients *clients.Clients) FilesClient {
	return FilesClient{
		clients: clients,
	}
}

func (c FilesClient) GenerateTicket(ctx context.Context, ticket message.PrintableTicket) (string, error) {
	fileID := fmt.Sprintf("%s-ticket.html", ticket.TicketID)
	fileContent := fmt.Sprintf(
		printTicketFileTemplate,
		ticket.TicketNumber,
		ticket.EventID,
		ticket.Price.Amount.StringFixed(2),
		ticket.Price.Currency,
		ticket.TicketNumber,
		ticket.QRPayload,
	)

	res, err := c.clients.Files.PutFilesFileIdContentWithTextBodyWithResponse(ctx, fileID, fileContent)
	if err != nil {
		return "", fmt.Errorf("put file request: %w", err)
	}

	if res.StatusCode() == http.StatusConflict {
		log.FromContext(ctx).Infof("file %s already exists", fileID)
		return fileID, nil
	}

	if res.StatusCode() != http.StatusOK && res.StatusCode() != http.StatusCreated {
		return "", fmt.Errorf("unexpected status code: %d", res.StatusCode())
	}

	return fileID, nil
}
