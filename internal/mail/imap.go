package mail

import (
	"context"
	"fmt"
	"strconv"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-message"
	"github.com/sirupsen/logrus"

	"github.com/huangsam/mailprune/internal/cache"
	"github.com/huangsam/mailprune/internal/config"
)

// IMAPRemote implements Remote against a plain IMAP mailbox. Message ids are
// IMAP UIDs rendered as strings, and read/starred state comes from the
// \Seen and \Flagged flags since IMAP has no label concept.
type IMAPRemote struct {
	client  *client.Client
	mailbox string
}

// NewIMAPPool builds a pool of logged-in IMAP connections.
func NewIMAPPool(cfg *config.GmailConfig, size int) (*Pool, error) {
	if cfg.IMAPUser == "" || cfg.IMAPPassword == "" {
		return nil, ErrNoCredentials
	}

	mailbox := cfg.IMAPMailbox
	if mailbox == "" {
		mailbox = "INBOX"
	}

	return NewPool(size, func() (Remote, error) {
		c, err := client.DialTLS(fmt.Sprintf("%s:%d", cfg.IMAPHost, cfg.IMAPPort), nil)
		if err != nil {
			return nil, fmt.Errorf("connect to IMAP server: %w", err)
		}
		if err := c.Login(cfg.IMAPUser, cfg.IMAPPassword); err != nil {
			c.Logout()
			return nil, fmt.Errorf("login to IMAP server: %w", err)
		}
		if _, err := c.Select(mailbox, true); err != nil {
			c.Logout()
			return nil, fmt.Errorf("select %s: %w", mailbox, err)
		}
		return &IMAPRemote{client: c, mailbox: mailbox}, nil
	})
}

// List pages through the mailbox newest first. IMAP cannot evaluate Gmail
// search queries, so a non-empty query is ignored with a debug note. The
// page token is the offset into the UID listing.
func (r *IMAPRemote) List(ctx context.Context, query, pageToken string, pageSize int64) (ListPage, error) {
	if query != "" {
		logrus.Debugf("IMAP listing ignores query %q", query)
	}

	uids, err := r.client.UidSearch(imap.NewSearchCriteria())
	if err != nil {
		return ListPage{}, fmt.Errorf("search %s: %w", r.mailbox, err)
	}

	// UidSearch returns ascending UIDs; newest first matches the Gmail order.
	for i, j := 0, len(uids)-1; i < j; i, j = i+1, j-1 {
		uids[i], uids[j] = uids[j], uids[i]
	}

	offset := 0
	if pageToken != "" {
		offset, err = strconv.Atoi(pageToken)
		if err != nil {
			return ListPage{}, fmt.Errorf("invalid page token %q: %w", pageToken, err)
		}
	}
	if offset >= len(uids) {
		return ListPage{}, nil
	}

	end := offset + int(pageSize)
	if end > len(uids) {
		end = len(uids)
	}

	page := ListPage{}
	for _, uid := range uids[offset:end] {
		page.IDs = append(page.IDs, strconv.FormatUint(uint64(uid), 10))
	}
	if end < len(uids) {
		page.NextPageToken = strconv.Itoa(end)
	}
	return page, nil
}

// GetMetadata fetches the header section and flags for one UID.
func (r *IMAPRemote) GetMetadata(ctx context.Context, id string) (*cache.Record, error) {
	uid, err := strconv.ParseUint(id, 10, 32)
	if err != nil {
		return nil, fmt.Errorf("invalid IMAP uid %q: %w", id, err)
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(uint32(uid))

	section := &imap.BodySectionName{
		BodyPartName: imap.BodyPartName{
			Specifier: imap.HeaderSpecifier,
			Fields:    MetadataHeaders,
		},
		Peek: true,
	}
	items := []imap.FetchItem{section.FetchItem(), imap.FetchFlags, imap.FetchUid}

	messages := make(chan *imap.Message, 1)
	done := make(chan error, 1)
	go func() {
		done <- r.client.UidFetch(seqset, items, messages)
	}()

	msg := <-messages
	if err := <-done; err != nil {
		return nil, fmt.Errorf("fetch uid %d: %w", uid, err)
	}
	if msg == nil {
		return nil, fmt.Errorf("uid %d not found in %s", uid, r.mailbox)
	}

	record := &cache.Record{
		ID:       id,
		LabelIDs: labelsFromFlags(msg.Flags),
	}

	if body := msg.GetBody(section); body != nil {
		entity, err := message.Read(body)
		if err != nil {
			return nil, fmt.Errorf("read header section for uid %d: %w", uid, err)
		}
		for _, name := range MetadataHeaders {
			if value := entity.Header.Get(name); value != "" {
				record.Headers = append(record.Headers, cache.Header{Name: name, Value: value})
			}
		}
	}

	return record, nil
}

func labelsFromFlags(flags []string) []string {
	seen := false
	var labels []string
	for _, f := range flags {
		switch f {
		case imap.SeenFlag:
			seen = true
		case imap.FlaggedFlag:
			labels = append(labels, LabelStarred)
		}
	}
	if !seen {
		labels = append(labels, LabelUnread)
	}
	return labels
}

// Close logs out the IMAP session.
func (r *IMAPRemote) Close() error {
	return r.client.Logout()
}
