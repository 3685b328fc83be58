package sqrt

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"

	"sqrt-go/internal/model"
	"sqrt-go/internal/parse"
)

// vkGroupPeer is the first peer id of VK group chats. The archive names
// each chat directory after its peer id.
const vkGroupPeer = 2_000_000_000

// SyncTelegram replaces the Telegram messages when the export changed.
func (s *SqrtService) SyncTelegram(ctx context.Context) (*SyncReport, error) {
	return s.syncFile(ctx, "telegram", s.settings.Messengers.TelegramFile, ImporterFunc(s.importTelegram))
}

// SyncNameMapping replaces the Telegram to VK name table when it changed.
func (s *SqrtService) SyncNameMapping(ctx context.Context) (*SyncReport, error) {
	return s.syncFile(ctx, "messengers-mapping", s.settings.Messengers.MappingFile, ImporterFunc(s.importNameMapping))
}

// SyncVk loads the changed chat pages of a VK archive. The rows of a page
// are replaced as a whole.
func (s *SqrtService) SyncVk(ctx context.Context) (*SyncReport, error) {
	folder := s.settings.Messengers.VkFolder
	if folder == "" {
		return &SyncReport{Source: "vk"}, nil
	}
	resources, err := s.fsmgr.FindFiles(folder, "messages*.html", true)
	if err != nil {
		return nil, &TransientSourceError{Source: "vk", Err: err}
	}
	return s.sync.Run(ctx, "vk", resources, ImporterFunc(s.importVkPage))
}

// syncFile runs importer over a single optional input file.
func (s *SqrtService) syncFile(ctx context.Context, source, path string, importer Importer) (*SyncReport, error) {
	if path == "" {
		return &SyncReport{Source: source}, nil
	}
	exists, err := s.fsmgr.Exists(path)
	if err != nil {
		return nil, &TransientSourceError{Source: source, Err: err}
	}
	if !exists {
		s.logger.Warn("input not found", "source", source, "path", path)
		return &SyncReport{Source: source}, nil
	}
	res, err := s.fsmgr.Resolve(path)
	if err != nil {
		return nil, &TransientSourceError{Source: source, Err: err}
	}
	return s.sync.Run(ctx, source, []*Resource{res}, importer)
}

func (s *SqrtService) importTelegram(ctx context.Context, res *Resource) error {
	data, err := s.readAll(res)
	if err != nil {
		return err
	}
	messages, err := parse.TelegramExport(data, s.settings.Messengers.TelegramExclude)
	if err != nil {
		return &ParseError{Resource: res.ID(), Err: err}
	}

	batch := Batch{Entity: model.EntityTelegram, Rows: make([][]any, 0, len(messages))}
	for _, m := range messages {
		batch.Rows = append(batch.Rows, m.Row())
	}
	if _, err := s.database.Ingest(ctx, batch); err != nil {
		return fmt.Errorf("ingesting telegram messages: %w", err)
	}
	s.logger.Info("telegram export loaded", "messages", len(messages))
	return nil
}

func (s *SqrtService) importNameMapping(ctx context.Context, res *Resource) error {
	rc, err := s.fsmgr.Open(res)
	if err != nil {
		return fmt.Errorf("opening: %w", err)
	}
	defer rc.Close()

	mappings, err := parse.NameMappingCSV(rc)
	if err != nil {
		return &ParseError{Resource: res.ID(), Line: parse.Line(err), Err: err}
	}
	batch := Batch{Entity: model.EntityNameMapping, Rows: make([][]any, 0, len(mappings))}
	for _, m := range mappings {
		batch.Rows = append(batch.Rows, m.Row())
	}
	if _, err := s.database.Ingest(ctx, batch); err != nil {
		return fmt.Errorf("ingesting name mapping: %w", err)
	}
	return nil
}

func (s *SqrtService) importVkPage(ctx context.Context, res *Resource) error {
	root, err := filepath.Abs(s.settings.Messengers.VkFolder)
	if err != nil {
		return fmt.Errorf("resolving vk folder: %w", err)
	}
	rel, err := filepath.Rel(root, res.ID())
	if err != nil {
		return fmt.Errorf("locating %s in the archive: %w", res.ID(), err)
	}

	rc, err := s.fsmgr.Open(res)
	if err != nil {
		return fmt.Errorf("opening: %w", err)
	}
	defer rc.Close()

	chat, err := parse.VkChatHTML(rc, s.settings.Messengers.VkAuthor)
	if err != nil {
		return &ParseError{Resource: res.ID(), Err: err}
	}
	if len(chat.Messages) == 0 {
		s.logger.Debug("vk page without messages", "file", rel)
		return nil
	}

	peer, _ := strconv.ParseInt(filepath.Base(filepath.Dir(rel)), 10, 64)
	batch := Batch{Entity: model.EntityVk, Rows: make([][]any, 0, len(chat.Messages))}
	for i, m := range chat.Messages {
		m.IsGroup = peer >= vkGroupPeer
		msg := model.VkMessage{File: filepath.ToSlash(rel), Position: i, Message: m}
		batch.Rows = append(batch.Rows, msg.Row())
	}
	if _, err := s.database.Ingest(ctx, batch); err != nil {
		return fmt.Errorf("ingesting vk page: %w", err)
	}
	return nil
}
