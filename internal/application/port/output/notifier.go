package output

import "context"

type NotifierPort interface {
	SendMessage(ctx context.Context, text string) error
	UploadDocument(ctx context.Context, path, caption string) error
}
