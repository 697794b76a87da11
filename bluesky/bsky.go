package bluesky

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/marianfoo/bluesky-bots/compose"

	"github.com/bluesky-social/indigo/api/atproto"
	"github.com/bluesky-social/indigo/api/bsky"
	lexutil "github.com/bluesky-social/indigo/lex/util"
	"github.com/bluesky-social/indigo/xrpc"
	"github.com/labstack/gommon/log"
)

const DefaultPDSHost = "https://bsky.social"

type Credentials struct {
	Identifier string
	Password   string
}

type Client struct {
	xrpc *xrpc.Client
}

func ClientFromCredentials(ctx context.Context, host string, creds *Credentials) (*Client, error) {
	auth, err := atproto.ServerCreateSession(ctx, &xrpc.Client{Host: host}, &atproto.ServerCreateSession_Input{
		Identifier: creds.Identifier,
		Password:   creds.Password,
	})

	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	xrpcClient := &xrpc.Client{
		Host: host,
		Auth: &xrpc.AuthInfo{
			AccessJwt:  auth.AccessJwt,
			RefreshJwt: auth.RefreshJwt,
			Handle:     auth.Handle,
			Did:        auth.Did,
		},
		Client: http.DefaultClient,
	}

	return &Client{xrpc: xrpcClient}, nil
}

// Did returns the DID of the authenticated account.
func (c *Client) Did() string {
	return c.xrpc.Auth.Did
}

// Handle returns the handle of the authenticated account.
func (c *Client) Handle() string {
	return c.xrpc.Auth.Handle
}

// UploadBlob uploads a blob (binary data like an image) to the Bluesky network.
// It takes a context and an io.Reader containing the blob data.
// Returns the uploaded blob's metadata or an error if the upload fails.
func (c *Client) UploadBlob(ctx context.Context, r io.Reader) (*lexutil.LexBlob, error) {
	resp, err := atproto.RepoUploadBlob(ctx, c.xrpc, r)
	if err != nil {
		return nil, fmt.Errorf("failed to upload blob: %w", err)
	}
	return resp.Blob, nil
}

// CreatePost publishes a post record to the account's repository and returns
// the AT URI of the created record. Link and tag spans on the post become
// richtext facets; image, when set, becomes an image embed.
func (c *Client) CreatePost(ctx context.Context, post compose.Post, image *lexutil.LexBlob) (string, error) {
	record := &bsky.FeedPost{
		Text:      post.Text,
		CreatedAt: FormatTime(time.Now().UTC()),
		Facets:    facets(post),
		Langs:     post.Langs,
	}

	if image != nil {
		record.Embed = &bsky.FeedPost_Embed{
			EmbedImages: &bsky.EmbedImages{
				Images: []*bsky.EmbedImages_Image{
					{
						Alt:   post.ImageAlt,
						Image: image,
					},
				},
			},
		}
	}

	resp, err := atproto.RepoCreateRecord(ctx, c.xrpc, &atproto.RepoCreateRecord_Input{
		Collection: "app.bsky.feed.post",
		Repo:       c.xrpc.Auth.Did,
		Record: &lexutil.LexiconTypeDecoder{
			Val: record,
		},
	})
	if err != nil {
		// Display the entire http response error so we can see what went wrong
		log.Errorf("failed to create record: %s", err)
		return "", fmt.Errorf("failed to create record: %w", err)
	}

	return resp.Uri, nil
}

// GetFollowers returns one page of the actor's followers.
func (c *Client) GetFollowers(ctx context.Context, actor string, cursor string, limit int64) (*bsky.GraphGetFollowers_Output, error) {
	return bsky.GraphGetFollowers(ctx, c.xrpc, actor, cursor, limit)
}

func facets(post compose.Post) []*bsky.RichtextFacet {
	var result []*bsky.RichtextFacet

	for _, link := range post.Links {
		result = append(result, &bsky.RichtextFacet{
			Index: &bsky.RichtextFacet_ByteSlice{
				ByteStart: link.Start,
				ByteEnd:   link.End,
			},
			Features: []*bsky.RichtextFacet_Features_Elem{
				{
					RichtextFacet_Link: &bsky.RichtextFacet_Link{
						Uri: link.URI,
					},
				},
			},
		})
	}

	for _, tag := range post.Tags {
		result = append(result, &bsky.RichtextFacet{
			Index: &bsky.RichtextFacet_ByteSlice{
				ByteStart: tag.Start,
				ByteEnd:   tag.End,
			},
			Features: []*bsky.RichtextFacet_Features_Elem{
				{
					RichtextFacet_Tag: &bsky.RichtextFacet_Tag{
						Tag: tag.Tag,
					},
				},
			},
		})
	}

	return result
}

// FormatTime formats a time.Time into the format expected by AT Protocol
func FormatTime(t time.Time) string {
	return t.Format("2006-01-02T15:04:05.000Z")
}
