package model

// BuildReplyTree 将同一帖子下的扁平回复按 ParentID 组装为树，输入需按时间升序。
// 父回复缺失 (已删除或不属于该帖子) 的节点提升为根节点。
func BuildReplyTree(replies []Reply) []*Reply {
	nodes := make(map[uint]*Reply, len(replies))
	for i := range replies {
		r := &replies[i]
		r.Children = nil
		nodes[r.ID] = r
	}

	roots := make([]*Reply, 0)
	for i := range replies {
		r := &replies[i]
		if r.ParentID != nil {
			if parent, ok := nodes[*r.ParentID]; ok && parent.ID != r.ID {
				parent.Children = append(parent.Children, r)
				continue
			}
		}
		roots = append(roots, r)
	}
	return roots
}
